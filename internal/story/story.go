// Package story reads storytelling books: an ordered list of chapters, each
// flying the map to a location when scrolled into view.
package story

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/ExploreWilder/MainWebsite/internal/framing"
)

// ContextZoom is the zoom of the overview map.
const ContextZoom = 8

var (
	ErrNoChapters     = errors.New("story has no chapters")
	ErrUnknownChapter = errors.New("unknown chapter")
)

var alignments = map[string]bool{"": true, "left": true, "center": true, "right": true}

func Parse(b []byte) (*Story, error) {
	var s Story
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse story: %w", err)
	}
	if len(s.Chapters) == 0 {
		return nil, ErrNoChapters
	}
	if !alignments[s.Alignment] {
		return nil, fmt.Errorf("parse story: invalid alignment %q", s.Alignment)
	}
	s.index = make(map[string]int, len(s.Chapters))
	for i, ch := range s.Chapters {
		if ch.ID == "" {
			return nil, fmt.Errorf("parse story: chapter %d has no id", i)
		}
		if _, dup := s.index[ch.ID]; dup {
			return nil, fmt.Errorf("parse story: duplicate chapter %q", ch.ID)
		}
		s.index[ch.ID] = i
	}
	return &s, nil
}

func Load(path string) (*Story, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func (s *Story) Chapter(id string) (Chapter, bool) {
	i, ok := s.index[id]
	if !ok {
		return Chapter{}, false
	}
	return s.Chapters[i], true
}

// Enter returns where the map flies when chapter id is entered on a map
// containerWidth pixels wide.
func (s *Story) Enter(id string, containerWidth float64) (framing.ViewFrame, error) {
	ch, ok := s.Chapter(id)
	if !ok {
		return framing.ViewFrame{}, fmt.Errorf("%w: %q", ErrUnknownChapter, id)
	}
	return Frame(ch.Location, containerWidth), nil
}

// Start is the initial camera, the first chapter's location.
func (s *Story) Start(containerWidth float64) framing.ViewFrame {
	return Frame(s.Chapters[0].Location, containerWidth)
}

func Frame(loc Location, containerWidth float64) framing.ViewFrame {
	return framing.ViewFrame{
		Center:      loc.Center,
		Zoom:        framing.ChapterZoom(loc.Zoom, containerWidth),
		Orientation: &framing.Orientation{Yaw: loc.Bearing, Pitch: loc.Pitch},
	}
}

// ContextFrame is the overview map camera of a chapter. ok is false when the
// chapter hides the overview or keeps its previous position.
func (ch Chapter) ContextFrame() (framing.ViewFrame, bool) {
	if ch.ShowContext.Center == nil {
		return framing.ViewFrame{}, false
	}
	return framing.ViewFrame{Center: *ch.ShowContext.Center, Zoom: ContextZoom}, true
}

// Animator is the map side of a widgetsync.Sync.
type Animator interface {
	FlyTo(frame framing.ViewFrame)
}

// Stage is the page around the story map: the overview map, the chapter
// marker and the book layers.
type Stage interface {
	// ShowContext shows the overview map, recentered on frame when not nil.
	ShowContext(frame *framing.ViewFrame)
	HideContext()
	PlaceMarker(center [2]float64)
	SetLayerOpacity(layer string, opacity float64)
}

// Play enters chapter id: the map flies to the chapter on a, then the
// overview map, the marker and the entry layer opacities are applied on st.
func (s *Story) Play(a Animator, st Stage, id string, containerWidth float64) (Chapter, error) {
	frame, err := s.Enter(id, containerWidth)
	if err != nil {
		return Chapter{}, err
	}
	ch, _ := s.Chapter(id)
	a.FlyTo(frame)

	if ch.ShowContext.Show {
		var ctx *framing.ViewFrame
		if f, ok := ch.ContextFrame(); ok {
			ctx = &f
		}
		st.ShowContext(ctx)
	} else {
		st.HideContext()
	}
	if s.ShowMarkers {
		st.PlaceMarker(ch.Location.Center)
	}
	applyOpacities(st, ch.OnChapterEnter)
	return ch, nil
}

// Leave applies the exit layer opacities of chapter id.
func (s *Story) Leave(st Stage, id string) error {
	ch, ok := s.Chapter(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChapter, id)
	}
	applyOpacities(st, ch.OnChapterExit)
	return nil
}

func applyOpacities(st Stage, layers []LayerOpacity) {
	for _, l := range layers {
		st.SetLayerOpacity(l.Layer, l.Opacity)
	}
}
