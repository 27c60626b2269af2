package widgetsync

import (
	"sync"
	"time"

	"github.com/ExploreWilder/MainWebsite/internal/framing"
	"github.com/ExploreWilder/MainWebsite/internal/geometry"
)

// MapSurface is the map widget. Every call replaces the previous visual
// element of the same kind.
type MapSurface interface {
	ShowTooltip(at geometry.TrackSample, label string)
	HideTooltip()
	MoveHiker(at geometry.TrackSample)
	FlyTo(frame framing.ViewFrame)
}

// ChartSurface is the elevation chart widget.
type ChartSurface interface {
	MoveMarker(distance float64)
}

type Surfaces struct {
	Map   MapSurface
	Chart ChartSurface
}

type Timer interface {
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type CommandKind string

const (
	CmdChartMarker CommandKind = "chart_marker"
	CmdTooltip     CommandKind = "tooltip"
	CmdHideTooltip CommandKind = "hide_tooltip"
	CmdHiker       CommandKind = "hiker"
	CmdFlyTo       CommandKind = "fly_to"

	// storytelling page
	CmdContext      CommandKind = "context"
	CmdHideContext  CommandKind = "hide_context"
	CmdStoryMarker  CommandKind = "story_marker"
	CmdLayerOpacity CommandKind = "layer_opacity"
)

// Command is a draw instruction in serializable form.
type Command struct {
	Kind     CommandKind           `json:"kind"`
	Distance float64               `json:"distance,omitempty"`
	Sample   *geometry.TrackSample `json:"sample,omitempty"`
	Label    string                `json:"label,omitempty"`
	Frame    *framing.ViewFrame    `json:"frame,omitempty"`
	Marker   *geometry.Waypoint    `json:"marker,omitempty"`
	Center   *[2]float64           `json:"center,omitempty"`
	Layer    string                `json:"layer,omitempty"`
	Opacity  *float64              `json:"opacity,omitempty"`
}

// Recorder turns surface calls into Commands, for hosts that render
// remotely. It implements both MapSurface and ChartSurface.
type Recorder struct {
	mu   sync.Mutex
	emit func(Command)
}

func NewRecorder(emit func(Command)) *Recorder {
	return &Recorder{emit: emit}
}

func (r *Recorder) send(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit(c)
}

func (r *Recorder) ShowTooltip(at geometry.TrackSample, label string) {
	r.send(Command{Kind: CmdTooltip, Distance: at.CumulativeDistance, Sample: &at, Label: label})
}

func (r *Recorder) HideTooltip() {
	r.send(Command{Kind: CmdHideTooltip})
}

func (r *Recorder) MoveHiker(at geometry.TrackSample) {
	hiker := geometry.HikerAt(at)
	r.send(Command{Kind: CmdHiker, Distance: at.CumulativeDistance, Sample: &at, Marker: &hiker})
}

func (r *Recorder) FlyTo(frame framing.ViewFrame) {
	r.send(Command{Kind: CmdFlyTo, Frame: &frame})
}

func (r *Recorder) MoveMarker(distance float64) {
	r.send(Command{Kind: CmdChartMarker, Distance: distance})
}

// ShowContext shows the overview map, recentered on frame when not nil.
func (r *Recorder) ShowContext(frame *framing.ViewFrame) {
	r.send(Command{Kind: CmdContext, Frame: frame})
}

func (r *Recorder) HideContext() {
	r.send(Command{Kind: CmdHideContext})
}

func (r *Recorder) PlaceMarker(center [2]float64) {
	r.send(Command{Kind: CmdStoryMarker, Center: &center})
}

func (r *Recorder) SetLayerOpacity(layer string, opacity float64) {
	r.send(Command{Kind: CmdLayerOpacity, Layer: layer, Opacity: &opacity})
}

// Surfaces returns the recorder as both map and chart.
func (r *Recorder) Surfaces() Surfaces {
	return Surfaces{Map: r, Chart: r}
}
