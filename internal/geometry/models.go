package geometry

import (
	"fmt"
	"strings"
)

// TrackSample is one decoded point of a track. CumulativeDistance is the
// along-track distance in meters from the first sample.
type TrackSample struct {
	Longitude          float64 `json:"lon"`
	Latitude           float64 `json:"lat"`
	Elevation          float64 `json:"ele"`
	CumulativeDistance float64 `json:"dist"`
}

type Category int

const (
	Generic Category = iota
	Campground
	Shelter
	Start
	End
	Hiker
)

func (c Category) String() string {
	switch c {
	case Campground:
		return "campground"
	case Shelter:
		return "shelter"
	case Start:
		return "start"
	case End:
		return "end"
	case Hiker:
		return "hiker"
	default:
		return "generic"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	for k := Generic; k <= Hiker; k++ {
		if k.String() == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown waypoint category %q", b)
}

// CategoryFromSymbol maps a GPX/Viking waypoint symbol to a category.
// Start, End and Hiker are never produced here.
func CategoryFromSymbol(sym string) Category {
	switch strings.ReplaceAll(strings.ToLower(sym), " ", "") {
	case "campground":
		return Campground
	case "fishinghotspotfacility", "shelter":
		return Shelter
	default:
		return Generic
	}
}

type Waypoint struct {
	Longitude    float64  `json:"lon"`
	Latitude     float64  `json:"lat"`
	Elevation    float64  `json:"ele"`
	HasElevation bool     `json:"has_ele"`
	Symbol       string   `json:"sym,omitempty"`
	Name         string   `json:"name"`
	Category     Category `json:"category"`
}

type Statistics struct {
	TotalLength  float64 `json:"total_length"`
	MinElevation float64 `json:"min_elevation"`
	MaxElevation float64 `json:"max_elevation"`
	Gain         float64 `json:"elevation_gain"`
	Loss         float64 `json:"elevation_loss"`
}
