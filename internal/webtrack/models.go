package webtrack

import "github.com/ExploreWilder/MainWebsite/internal/geometry"

const (
	FormatName     = "webtrack-bin"
	CurrentVersion = "0.1.0"

	ContentType        = "application/prs.webtrack"
	ProfileContentType = "application/prs.profile+zstd"
)

// SupportedVersions lists the binary versions Decode accepts.
var SupportedVersions = []string{CurrentVersion}

func IsSupportedVersion(v string) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}

// TrackInfo is the statistics block stored in the file header, rounded to
// whole meters by the writer.
type TrackInfo struct {
	Length      float64 `json:"totalLength"`
	MinAltitude float64 `json:"minimumAltitude"`
	MaxAltitude float64 `json:"maximumAltitude"`
	Gain        float64 `json:"totalElevationGain"`
	Loss        float64 `json:"totalElevationLoss"`
}

type Segment struct {
	WithElevation bool
	Points        []geometry.TrackSample
}

type Track struct {
	Format    string
	Version   string
	Segments  []Segment
	Waypoints []geometry.Waypoint
	Info      TrackInfo
}

// Samples flattens all segments into one ordered sequence.
func (t *Track) Samples() []geometry.TrackSample {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Points)
	}
	out := make([]geometry.TrackSample, 0, n)
	for _, s := range t.Segments {
		out = append(out, s.Points...)
	}
	return out
}

// Path builds the queryable path of the track.
func (t *Track) Path() (*geometry.Path, error) {
	return geometry.Build(t.Samples())
}
