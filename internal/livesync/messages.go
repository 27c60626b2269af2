package livesync

import (
	"github.com/ExploreWilder/MainWebsite/internal/framing"
	"github.com/ExploreWilder/MainWebsite/internal/geometry"
)

type EventType string

const (
	EventMapHover      EventType = "map_hover"
	EventMapHoverAt    EventType = "map_hover_at"
	EventChartHover    EventType = "chart_hover"
	EventMapLeave      EventType = "map_leave"
	EventFlyTo         EventType = "fly_to"
	EventChapter       EventType = "chapter"
	EventChapterExit   EventType = "chapter_exit"
	EventAnimationDone EventType = "animation_done"
	EventViewport      EventType = "viewport"
)

// Event is a message posted by the client.
type Event struct {
	Type     EventType          `json:"type"`
	Segment  int                `json:"segment"`
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	Fraction float64            `json:"fraction"`
	Frame    *framing.ViewFrame `json:"frame,omitempty"`
	Chapter  string             `json:"chapter,omitempty"`
	Viewport *Viewport          `json:"viewport,omitempty"`
}

// Hello is the first message sent on a sync socket.
type Hello struct {
	Kind       string              `json:"kind"`
	ViewID     string              `json:"view_id"`
	Viewport   Viewport            `json:"viewport"`
	Statistics geometry.Statistics `json:"statistics"`
	// first chapter camera when a story is configured
	Story *framing.ViewFrame `json:"story,omitempty"`
}
