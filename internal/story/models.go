package story

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Location is where the map flies when a chapter is entered. Zoom is
// authored for a 1920 px wide map.
type Location struct {
	Center  [2]float64 `json:"center"`
	Zoom    float64    `json:"zoom"`
	Pitch   float64    `json:"pitch"`
	Bearing float64    `json:"bearing"`
}

type LayerOpacity struct {
	Layer   string  `json:"layer"`
	Opacity float64 `json:"opacity"`
}

type TrackInfo struct {
	Period         string  `json:"period,omitempty"`
	Season         string  `json:"season,omitempty"`
	Duration       string  `json:"duration,omitempty"`
	Distance       float64 `json:"distance,omitempty"`
	TotalElevation float64 `json:"totalElevation,omitempty"`
	Details        string  `json:"details,omitempty"`
}

// Context is the small overview map of a chapter. The JSON value is either
// a boolean or a [lon, lat] pair to recenter on.
type Context struct {
	Show   bool
	Center *[2]float64
}

func (c *Context) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var center [2]float64
		if err := json.Unmarshal(b, &center); err != nil {
			return err
		}
		c.Show, c.Center = true, &center
		return nil
	}
	var show bool
	if err := json.Unmarshal(b, &show); err != nil {
		return err
	}
	c.Show, c.Center = show, nil
	return nil
}

func (c Context) MarshalJSON() ([]byte, error) {
	if c.Center != nil {
		return json.Marshal(c.Center)
	}
	return json.Marshal(c.Show)
}

type Chapter struct {
	ID             string         `json:"id"`
	Title          string         `json:"title,omitempty"`
	Image          string         `json:"image,omitempty"`
	Video          string         `json:"video,omitempty"`
	Description    string         `json:"description,omitempty"`
	Card           *Card          `json:"card,omitempty"`
	Location       Location       `json:"location"`
	ShowContext    Context        `json:"showContext"`
	TrackInfo      *TrackInfo     `json:"trackInfo,omitempty"`
	DetailedTrack  string         `json:"detailedTrack,omitempty"`
	OnChapterEnter []LayerOpacity `json:"onChapterEnter,omitempty"`
	OnChapterExit  []LayerOpacity `json:"onChapterExit,omitempty"`
}

type Card struct {
	Curr int `json:"curr"`
	Last int `json:"last"`
}

type GeoJSONLayer struct {
	Data    string          `json:"data"`
	Opacity float64         `json:"opacity"`
	Layer   json.RawMessage `json:"layer"`
}

type Story struct {
	Style       string         `json:"style"`
	Theme       string         `json:"theme"`
	Alignment   string         `json:"alignment"`
	ShowMarkers bool           `json:"showMarkers"`
	GeoJSONs    []GeoJSONLayer `json:"geojsons,omitempty"`
	Chapters    []Chapter      `json:"chapters"`

	index map[string]int
}
