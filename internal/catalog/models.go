package catalog

import "time"

// Track is the indexed summary of a converted book track.
type Track struct {
	ID            string    `json:"id"`
	BookID        int       `json:"book_id"`
	Name          string    `json:"name"`
	LengthM       float64   `json:"length_m"`
	MinAltitudeM  float64   `json:"min_altitude_m"`
	MaxAltitudeM  float64   `json:"max_altitude_m"`
	GainM         float64   `json:"gain_m"`
	LossM         float64   `json:"loss_m"`
	Points        int       `json:"points"`
	WaypointCount int       `json:"waypoint_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Waypoint struct {
	ID           string  `json:"id"`
	TrackID      string  `json:"track_id"`
	BookID       int     `json:"book_id"`
	TrackName    string  `json:"track_name"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Category     string  `json:"category"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	ElevationM   float64 `json:"elevation_m"`
	HasElevation bool    `json:"has_elevation"`
}
