// Package framing computes the camera that shows a whole path: the 3D
// player's globe camera, the 2D viewer's zoom fit and the storytelling
// chapter zoom correction.
package framing

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/shared/geo"
)

const (
	DefaultExtentScale    = 2.0
	DefaultMinExtent      = 500.0
	DefaultMaxExtentRatio = 1.4
	DefaultPitch          = -60.0

	// centroids closer than this to the planet center (meters) have no
	// usable direction
	degenerateNorm = 1e-3
)

// Orientation is the camera yaw, pitch and roll in degrees.
type Orientation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// ViewFrame is a camera target. Center is longitude, latitude. Extent is the
// visible span in meters for the globe camera; Zoom is the tile zoom level
// for the 2D camera. Either may be zero when not relevant.
type ViewFrame struct {
	Center      [2]float64   `json:"center"`
	Extent      float64      `json:"extent,omitempty"`
	Zoom        float64      `json:"zoom,omitempty"`
	Orientation *Orientation `json:"orientation,omitempty"`
}

type Options struct {
	ExtentScale    float64
	MinExtent      float64
	MaxExtentRatio float64
	PlanetRadius   float64
	Pitch          float64
}

func DefaultOptions() Options {
	return Options{
		ExtentScale:    DefaultExtentScale,
		MinExtent:      DefaultMinExtent,
		MaxExtentRatio: DefaultMaxExtentRatio,
		PlanetRadius:   geo.EarthRadius,
		Pitch:          DefaultPitch,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ExtentScale <= 0 {
		o.ExtentScale = d.ExtentScale
	}
	if o.MinExtent <= 0 {
		o.MinExtent = d.MinExtent
	}
	if o.MaxExtentRatio <= 0 {
		o.MaxExtentRatio = d.MaxExtentRatio
	}
	if o.PlanetRadius <= 0 {
		o.PlanetRadius = d.PlanetRadius
	}
	if o.Pitch == 0 {
		o.Pitch = d.Pitch
	}
	return o
}

// FitPath frames a path for the globe camera. Vertices are placed on a
// sphere; the camera looks from above the vertex centroid toward the
// planet center and the extent is the largest vertex distance from that
// viewing axis, scaled and bounded.
//
// This is a centroid and max-deviation heuristic, looser than an exact
// bounding box fit (see FitExtent).
func FitPath(p *geometry.Path, opts Options) ViewFrame {
	opts = opts.withDefaults()

	vertices := make([]r3.Vector, p.Len())
	var sum r3.Vector
	for i := range vertices {
		vertices[i] = toCartesian(p.Sample(i), opts.PlanetRadius)
		sum = sum.Add(vertices[i])
	}
	centroid := sum.Mul(1 / float64(len(vertices)))
	var axis r3.Vector
	if centroid.Norm() > degenerateNorm {
		axis = centroid.Mul(-1).Normalize()
	}

	var deviation float64
	for _, v := range vertices {
		deviation = math.Max(deviation, distanceToAxis(v, centroid, axis))
	}

	extent := math.Max(opts.MinExtent, deviation*opts.ExtentScale)
	extent = math.Min(extent, opts.PlanetRadius*opts.MaxExtentRatio)

	return ViewFrame{
		Center:      toLngLat(centroid, p.First()),
		Extent:      extent,
		Orientation: &Orientation{Yaw: 0, Pitch: opts.Pitch, Roll: 0},
	}
}

func toCartesian(s geometry.TrackSample, radius float64) r3.Vector {
	u := s2.PointFromLatLng(s2.LatLngFromDegrees(s.Latitude, s.Longitude))
	return u.Vector.Mul(radius + s.Elevation)
}

// distanceToAxis is the perpendicular distance from v to the line through
// origin along the unit vector axis. A zero axis degrades to the distance
// from origin.
func distanceToAxis(v, origin, axis r3.Vector) float64 {
	d := v.Sub(origin)
	if axis.Norm2() == 0 {
		return d.Norm()
	}
	return d.Cross(axis).Norm()
}

func toLngLat(v r3.Vector, fallback geometry.TrackSample) [2]float64 {
	if v.Norm() <= degenerateNorm {
		return [2]float64{fallback.Longitude, fallback.Latitude}
	}
	ll := s2.LatLngFromPoint(s2.Point{Vector: v.Normalize()})
	return [2]float64{ll.Lng.Degrees(), ll.Lat.Degrees()}
}
