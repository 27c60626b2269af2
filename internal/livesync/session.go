package livesync

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/story"
	"github.com/ExploreWilder/MainWebsite/internal/widgetsync"
)

var ErrUnknownEvent = errors.New("unknown event")

// session applies the events of one socket to its Sync.
type session struct {
	sync     *widgetsync.Sync
	stage    story.Stage
	path     *geometry.Path
	story    *story.Story
	viewport Viewport
}

func newSession(s *widgetsync.Sync, stage story.Stage, p *geometry.Path, st *story.Story, vp Viewport) *session {
	s.Load(p, vp.Projector())
	return &session{sync: s, stage: stage, path: p, story: st, viewport: vp}
}

func (s *session) handle(msg []byte) error {
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	switch ev.Type {
	case EventMapHover:
		s.sync.MapHover(ev.Segment, ev.X, ev.Y)
	case EventMapHoverAt:
		s.sync.MapHoverAt(ev.X, ev.Y)
	case EventChartHover:
		s.sync.ChartHover(ev.Fraction)
	case EventMapLeave:
		s.sync.MapLeave()
	case EventAnimationDone:
		s.sync.AnimationDone()
	case EventFlyTo:
		if ev.Frame == nil {
			return errors.New("fly_to without frame")
		}
		s.sync.FlyTo(*ev.Frame)
	case EventChapter:
		if s.story == nil {
			return errors.New("no story loaded")
		}
		if _, err := s.story.Play(s.sync, s.stage, ev.Chapter, float64(s.viewport.Width)); err != nil {
			return err
		}
	case EventChapterExit:
		if s.story == nil {
			return errors.New("no story loaded")
		}
		return s.story.Leave(s.stage, ev.Chapter)
	case EventViewport:
		if ev.Viewport == nil || !ev.Viewport.valid() {
			return errors.New("invalid viewport")
		}
		// the map moved, previous pixels are meaningless
		s.viewport = *ev.Viewport
		s.sync.Load(s.path, s.viewport.Projector())
	default:
		return fmt.Errorf("%w %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}
