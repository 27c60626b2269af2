// Package widgetsync keeps the map cursor, the elevation chart cursor and
// the hiker marker at the same path distance.
package widgetsync

import (
	"sync"
	"time"

	"github.com/ExploreWilder/MainWebsite/internal/framing"
	"github.com/ExploreWilder/MainWebsite/internal/geometry"
)

const DefaultIdleTimeout = time.Second

type State int

const (
	Idle State = iota
	CursorOnMap
	CursorOnChart
	Animating
)

func (s State) String() string {
	switch s {
	case CursorOnMap:
		return "cursor_on_map"
	case CursorOnChart:
		return "cursor_on_chart"
	case Animating:
		return "animating"
	default:
		return "idle"
	}
}

// CursorState is the path position currently pointed at.
type CursorState struct {
	PathDistance float64              `json:"path_distance"`
	Sample       geometry.TrackSample `json:"sample"`
}

type Option func(*Sync)

func WithScheduler(s Scheduler) Option {
	return func(sy *Sync) { sy.sched = s }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(sy *Sync) {
		if d > 0 {
			sy.idle = d
		}
	}
}

// Sync owns the cursor state of one view. All methods are safe for
// concurrent use; surfaces are called with the internal lock held and must
// not call back into the Sync synchronously.
type Sync struct {
	mu       sync.Mutex
	surfaces Surfaces
	sched    Scheduler
	idle     time.Duration

	path *geometry.Path
	proj geometry.Projector

	state  State
	cursor *CursorState

	// last drawn values, so identical requests do not redraw
	tooltip     *CursorState
	hiker       *CursorState
	chartMarker *float64

	timer Timer
	gen   uint64
}

func New(surfaces Surfaces, opts ...Option) *Sync {
	s := &Sync{
		surfaces: surfaces,
		sched:    clockScheduler{},
		idle:     DefaultIdleTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load arms the sync with a decoded path. proj maps samples to map canvas
// pixels and may be nil when only chart events are expected.
func (s *Sync) Load(p *geometry.Path, proj geometry.Projector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.path = p
	s.proj = proj
}

// Reset discards the cursor and any pending timer. The path stays loaded.
func (s *Sync) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Sync) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path != nil
}

func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sync) Cursor() (CursorState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return CursorState{}, false
	}
	return *s.cursor, true
}

// MapHover handles a hover reported by the map renderer over path segment
// segment at canvas pixel (px, py).
func (s *Sync) MapHover(segment int, px, py float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pointerEnabled() || s.proj == nil {
		return
	}
	d, ok := s.path.DistanceAtCanvasProjection(segment, px, py, s.proj)
	if !ok {
		return
	}
	s.mapCursorLocked(d)
}

// MapHoverAt is MapHover for renderers without hit-testing; the closest
// segment on screen is used.
func (s *Sync) MapHoverAt(px, py float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pointerEnabled() || s.proj == nil {
		return
	}
	seg := s.path.NearestSegment(px, py, s.proj)
	d, _ := s.path.DistanceAtCanvasProjection(seg, px, py, s.proj)
	s.mapCursorLocked(d)
}

func (s *Sync) mapCursorLocked(d float64) {
	cur := s.cursorAt(d)
	s.state = CursorOnMap

	s.drawChartMarker(d)
	if s.tooltip == nil || *s.tooltip != cur {
		s.surfaces.Map.ShowTooltip(cur.Sample, geometry.FormatKilometers(d))
		s.tooltip = &cur
	}
	s.scheduleIdleLocked()
}

// ChartHover handles a pointer move over the elevation chart at horizontal
// fraction f in [0, 1].
func (s *Sync) ChartHover(f float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pointerEnabled() {
		return
	}
	s.cancelIdleLocked()

	d := s.path.DistanceAtChartFraction(f)
	cur := s.cursorAt(d)
	s.state = CursorOnChart

	if s.hiker == nil || *s.hiker != cur {
		s.surfaces.Map.MoveHiker(cur.Sample)
		s.hiker = &cur
	}
	if s.tooltip == nil || *s.tooltip != cur {
		s.surfaces.Map.ShowTooltip(cur.Sample, geometry.FormatKilometers(d))
		s.tooltip = &cur
	}
}

// MapLeave stops hovering the map; same effect as the idle timeout.
func (s *Sync) MapLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == nil || s.state != CursorOnMap {
		return
	}
	s.cancelIdleLocked()
	s.hideLocked()
	s.state = Idle
}

// FlyTo starts a programmatic camera animation. Pointer events are ignored
// until AnimationDone.
func (s *Sync) FlyTo(frame framing.ViewFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == nil {
		return
	}
	s.cancelIdleLocked()
	s.hideLocked()
	s.state = Animating
	s.surfaces.Map.FlyTo(frame)
}

func (s *Sync) AnimationDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Animating {
		s.state = Idle
	}
}

func (s *Sync) pointerEnabled() bool {
	return s.path != nil && s.state != Animating
}

func (s *Sync) cursorAt(d float64) CursorState {
	cur := CursorState{PathDistance: d, Sample: s.path.PointAtDistance(d)}
	s.cursor = &cur
	return cur
}

func (s *Sync) drawChartMarker(d float64) {
	if s.chartMarker != nil && *s.chartMarker == d {
		return
	}
	s.surfaces.Chart.MoveMarker(d)
	s.chartMarker = &d
}

func (s *Sync) hideLocked() {
	if s.tooltip != nil {
		s.surfaces.Map.HideTooltip()
		s.tooltip = nil
	}
}

// scheduleIdleLocked replaces any pending idle timer with a new one.
func (s *Sync) scheduleIdleLocked() {
	s.cancelIdleLocked()
	gen := s.gen
	s.timer = s.sched.AfterFunc(s.idle, func() { s.idleExpired(gen) })
}

func (s *Sync) cancelIdleLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sync) idleExpired(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// a timer stopped too late to prevent firing
	if gen != s.gen || s.timer == nil {
		return
	}
	s.timer = nil
	s.hideLocked()
	if s.state == CursorOnMap {
		s.state = Idle
	}
}

func (s *Sync) resetLocked() {
	s.cancelIdleLocked()
	s.hideLocked()
	s.state = Idle
	s.cursor = nil
	s.hiker = nil
	s.chartMarker = nil
}
