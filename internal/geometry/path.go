// Package geometry turns decoded track samples into a queryable path:
// interpolation by distance, projection of screen hovers back onto the
// path and the elevation statistics shown next to the chart.
package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Path is immutable after Build and safe for concurrent readers.
type Path struct {
	samples []TrackSample
	stats   Statistics
}

// Projector maps a sample to screen pixels. It is supplied by the renderer
// that owns the camera.
type Projector interface {
	Project(s TrackSample) (x, y float64)
}

type ProjectorFunc func(s TrackSample) (x, y float64)

func (f ProjectorFunc) Project(s TrackSample) (float64, float64) { return f(s) }

// Build copies samples into a Path. The first cumulative distance is
// rebased to zero and a decreasing distance is raised to its predecessor.
func Build(samples []TrackSample) (*Path, error) {
	if len(samples) < 2 {
		return nil, &GeometryError{Kind: TooFewPoints, Count: len(samples)}
	}

	out := make([]TrackSample, len(samples))
	copy(out, samples)

	offset := out[0].CumulativeDistance
	for i := range out {
		out[i].CumulativeDistance -= offset
		if i > 0 && out[i].CumulativeDistance < out[i-1].CumulativeDistance {
			out[i].CumulativeDistance = out[i-1].CumulativeDistance
		}
	}
	out[0].CumulativeDistance = 0

	p := &Path{samples: out}
	p.stats = computeStatistics(out)
	return p, nil
}

func computeStatistics(samples []TrackSample) Statistics {
	st := Statistics{
		TotalLength:  samples[len(samples)-1].CumulativeDistance,
		MinElevation: samples[0].Elevation,
		MaxElevation: samples[0].Elevation,
	}
	for i := 1; i < len(samples); i++ {
		e := samples[i].Elevation
		st.MinElevation = math.Min(st.MinElevation, e)
		st.MaxElevation = math.Max(st.MaxElevation, e)
		if delta := e - samples[i-1].Elevation; delta > 0 {
			st.Gain += delta
		} else {
			st.Loss -= delta
		}
	}
	return st
}

func (p *Path) Len() int { return len(p.samples) }

func (p *Path) Sample(i int) TrackSample { return p.samples[i] }

// Samples returns a copy of the underlying samples.
func (p *Path) Samples() []TrackSample {
	out := make([]TrackSample, len(p.samples))
	copy(out, p.samples)
	return out
}

func (p *Path) First() TrackSample { return p.samples[0] }

func (p *Path) Last() TrackSample { return p.samples[len(p.samples)-1] }

func (p *Path) TotalLength() float64 { return p.stats.TotalLength }

func (p *Path) Statistics() Statistics { return p.stats }

// PointAtDistance interpolates the sample at along-track distance d, clamped
// to [0, TotalLength]. The returned CumulativeDistance equals the clamped d.
func (p *Path) PointAtDistance(d float64) TrackSample {
	d = clamp(d, 0, p.stats.TotalLength)
	if d <= 0 {
		first := p.samples[0]
		first.CumulativeDistance = 0
		return first
	}
	if d >= p.stats.TotalLength {
		last := p.samples[len(p.samples)-1]
		last.CumulativeDistance = d
		return last
	}

	// first sample at or past d; samples[0] is at 0 < d so i >= 1
	i := sort.Search(len(p.samples), func(i int) bool {
		return p.samples[i].CumulativeDistance >= d
	})
	b := p.samples[i]
	if b.CumulativeDistance == d {
		return b
	}
	a := p.samples[i-1]
	t := (d - a.CumulativeDistance) / (b.CumulativeDistance - a.CumulativeDistance)
	return TrackSample{
		Longitude:          lerp(a.Longitude, b.Longitude, t),
		Latitude:           lerp(a.Latitude, b.Latitude, t),
		Elevation:          lerp(a.Elevation, b.Elevation, t),
		CumulativeDistance: d,
	}
}

// DistanceAtCanvasProjection converts a hover at pixel (px, py) over screen
// segment i (joining samples i and i+1) into an along-track distance. The
// pixel is projected orthogonally onto the screen segment and the fraction
// clamped to [0, 1]. ok is false for an out-of-range segment index.
func (p *Path) DistanceAtCanvasProjection(segment int, px, py float64, proj Projector) (dist float64, ok bool) {
	if segment < 0 || segment >= len(p.samples)-1 {
		return 0, false
	}
	a, b := p.samples[segment], p.samples[segment+1]
	f := screenFraction(a, b, px, py, proj)
	return a.CumulativeDistance + f*(b.CumulativeDistance-a.CumulativeDistance), true
}

// NearestSegment returns the index of the screen segment closest to
// (px, py), for hosts that only report a cursor position.
func (p *Path) NearestSegment(px, py float64, proj Projector) int {
	best, bestD := 0, math.Inf(1)
	ax, ay := proj.Project(p.samples[0])
	for i := 1; i < len(p.samples); i++ {
		bx, by := proj.Project(p.samples[i])
		f := fraction(ax, ay, bx, by, px, py)
		cx, cy := ax+f*(bx-ax), ay+f*(by-ay)
		if d := math.Hypot(px-cx, py-cy); d < bestD {
			best, bestD = i-1, d
		}
		ax, ay = bx, by
	}
	return best
}

// DistanceAtChartFraction maps a horizontal chart position in [0, 1] to a
// distance. Out-of-range fractions are clamped.
func (p *Path) DistanceAtChartFraction(f float64) float64 {
	return clamp(f, 0, 1) * p.stats.TotalLength
}

// LineString returns the path as a lon/lat line.
func (p *Path) LineString() orb.LineString {
	ls := make(orb.LineString, len(p.samples))
	for i, s := range p.samples {
		ls[i] = orb.Point{s.Longitude, s.Latitude}
	}
	return ls
}

func (p *Path) Bound() orb.Bound {
	return p.LineString().Bound()
}

func screenFraction(a, b TrackSample, px, py float64, proj Projector) float64 {
	ax, ay := proj.Project(a)
	bx, by := proj.Project(b)
	return fraction(ax, ay, bx, by, px, py)
}

func fraction(ax, ay, bx, by, px, py float64) float64 {
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return 0
	}
	return clamp(((px-ax)*dx+(py-ay)*dy)/l2, 0, 1)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
