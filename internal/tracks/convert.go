package tracks

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/shared/geo"
	"github.com/ExploreWilder/MainWebsite/internal/webtrack"
)

// simplifyThreshold is the Douglas-Peucker tolerance in degrees, about
// 2 m at the equator.
const simplifyThreshold = 0.00002

// geojsonPrecision keeps 4 decimals, the accuracy of a handheld GPS.
const geojsonPrecision = 1e4

// FromGPX converts a GPX document to a WebTrack. All tracks and segments are
// merged into one segment with elevation since a book track is a single
// trip. Every track point must carry an elevation and the track needs at
// least two points.
func FromGPX(b []byte) (*webtrack.Track, error) {
	doc, err := gpx.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	var (
		points []geometry.TrackSample
		prev   *gpx.GPXPoint
		length float64
	)
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for i := range seg.Points {
				pt := &seg.Points[i]
				if !pt.Elevation.NotNull() {
					return nil, fmt.Errorf("point %d: %w", len(points), ErrMissingElevation)
				}
				if prev != nil {
					length += geo.HaversineM(prev.Latitude, prev.Longitude, pt.Latitude, pt.Longitude)
				}
				points = append(points, geometry.TrackSample{
					Longitude:          pt.Longitude,
					Latitude:           pt.Latitude,
					Elevation:          pt.Elevation.Value(),
					CumulativeDistance: length,
				})
				prev = pt
			}
		}
	}
	switch len(points) {
	case 0:
		return nil, ErrNoTrackPoints
	case 1:
		return nil, ErrSingleTrackPoint
	}

	waypoints := make([]geometry.Waypoint, 0, len(doc.Waypoints))
	for _, w := range doc.Waypoints {
		wp := geometry.Waypoint{
			Longitude: w.Longitude,
			Latitude:  w.Latitude,
			Symbol:    w.Symbol,
			Name:      w.Name,
			Category:  geometry.CategoryFromSymbol(w.Symbol),
		}
		if w.Elevation.NotNull() {
			wp.Elevation, wp.HasElevation = w.Elevation.Value(), true
		}
		waypoints = append(waypoints, wp)
	}

	p, err := geometry.Build(points)
	if err != nil {
		return nil, err
	}
	return webtrack.FromPath(p, waypoints), nil
}

// GeoJSON converts a GPX document to a simplified FeatureCollection with one
// feature per track: a LineString, or a MultiLineString for tracks with
// several segments. Waypoints, elevations and metadata are left out.
func GeoJSON(b []byte) ([]byte, error) {
	doc, err := gpx.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	dp := simplify.DouglasPeucker(simplifyThreshold)
	fc := geojson.NewFeatureCollection()
	for _, trk := range doc.Tracks {
		var lines orb.MultiLineString
		for _, seg := range trk.Segments {
			ls := make(orb.LineString, 0, len(seg.Points))
			for _, pt := range seg.Points {
				ls = append(ls, orb.Point{pt.Longitude, pt.Latitude})
			}
			if len(ls) == 0 {
				continue
			}
			ls = dp.Simplify(ls).(orb.LineString)
			lines = append(lines, roundLine(ls))
		}
		switch len(lines) {
		case 0:
			continue
		case 1:
			fc.Append(geojson.NewFeature(lines[0]))
		default:
			fc.Append(geojson.NewFeature(lines))
		}
	}
	return fc.MarshalJSON()
}

func roundLine(ls orb.LineString) orb.LineString {
	for i, p := range ls {
		ls[i] = orb.Point{
			math.Round(p[0]*geojsonPrecision) / geojsonPrecision,
			math.Round(p[1]*geojsonPrecision) / geojsonPrecision,
		}
	}
	return ls
}
