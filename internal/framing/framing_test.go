package framing

import (
	"math"
	"testing"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/shared/geo"
)

func buildPath(t *testing.T, pts ...[2]float64) *geometry.Path {
	t.Helper()
	samples := make([]geometry.TrackSample, len(pts))
	for i, p := range pts {
		samples[i] = geometry.TrackSample{Longitude: p[0], Latitude: p[1], CumulativeDistance: float64(i)}
	}
	path, err := geometry.Build(samples)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return path
}

func TestFitPathShortTrackUsesMinimumExtent(t *testing.T) {
	p := buildPath(t, [2]float64{172.0, -43.0}, [2]float64{172.0001, -43.0})
	f := FitPath(p, DefaultOptions())
	if f.Extent != DefaultMinExtent {
		t.Fatalf("expected minimum extent, got %v", f.Extent)
	}
	if f.Orientation == nil || f.Orientation.Pitch != -60 || f.Orientation.Yaw != 0 {
		t.Fatalf("unexpected orientation: %+v", f.Orientation)
	}
	if math.Abs(f.Center[0]-172.00005) > 1e-6 || math.Abs(f.Center[1]+43) > 1e-6 {
		t.Fatalf("unexpected center: %v", f.Center)
	}
}

func TestFitPathExtentScalesWithDeviation(t *testing.T) {
	// two points 0.2 degree apart on the equator, ~22.2 km
	p := buildPath(t, [2]float64{-0.1, 0}, [2]float64{0.1, 0})
	f := FitPath(p, DefaultOptions())

	half := geo.EarthRadius * math.Sin(0.1*math.Pi/180)
	if math.Abs(f.Extent-2*half) > 1 {
		t.Fatalf("expected extent %v, got %v", 2*half, f.Extent)
	}
	if math.Abs(f.Center[0]) > 1e-9 || math.Abs(f.Center[1]) > 1e-9 {
		t.Fatalf("unexpected center: %v", f.Center)
	}
}

func TestFitPathClampedToPlanet(t *testing.T) {
	p := buildPath(t, [2]float64{-170, 0}, [2]float64{-60, 60}, [2]float64{50, 0}, [2]float64{120, -40})
	opts := DefaultOptions()
	f := FitPath(p, opts)
	if f.Extent != geo.EarthRadius*opts.MaxExtentRatio {
		t.Fatalf("expected clamp, got %v", f.Extent)
	}
}

func TestFitPathZeroOptionsUseDefaults(t *testing.T) {
	p := buildPath(t, [2]float64{10, 10}, [2]float64{10.5, 10.5})
	a, b := FitPath(p, Options{}), FitPath(p, DefaultOptions())
	if a.Center != b.Center || a.Extent != b.Extent || *a.Orientation != *b.Orientation {
		t.Fatalf("zero options should match defaults: %+v vs %+v", a, b)
	}
}

func TestFitPathAntipodalFallsBackToFirstSample(t *testing.T) {
	p := buildPath(t, [2]float64{0, 0}, [2]float64{180, 0})
	f := FitPath(p, DefaultOptions())
	if f.Center != [2]float64{0, 0} {
		t.Fatalf("expected fallback center, got %v", f.Center)
	}
	if f.Extent <= DefaultMinExtent {
		t.Fatalf("expected a wide extent, got %v", f.Extent)
	}
}

func TestFitExtent(t *testing.T) {
	p := buildPath(t, [2]float64{175.5, -39.3}, [2]float64{175.7, -39.1})
	f := FitExtent(p, 600, 400, DefaultPadding)

	if f.Zoom < MinZoom || f.Zoom > MaxZoom {
		t.Fatalf("zoom out of bounds: %v", f.Zoom)
	}
	// the fitted extent must not exceed the padded viewport
	res := 2 * math.Pi * geo.EarthRadius / tileSize / math.Pow(2, f.Zoom)
	if f.Extent/res > 590+1e-6 {
		t.Fatalf("extent %v does not fit at zoom %v", f.Extent, f.Zoom)
	}
	if math.Abs(f.Center[0]-175.6) > 1e-9 {
		t.Fatalf("unexpected center: %v", f.Center)
	}
	if f.Orientation != nil {
		t.Fatalf("2D fit has no orientation")
	}
}

func TestFitExtentSinglePointMaxZoom(t *testing.T) {
	p := buildPath(t, [2]float64{10, 10}, [2]float64{10, 10})
	if f := FitExtent(p, 600, 400, DefaultPadding); f.Zoom != MaxZoom {
		t.Fatalf("expected max zoom, got %v", f.Zoom)
	}
	if f := FitExtent(p, 8, 8, DefaultPadding); f.Zoom != MinZoom {
		t.Fatalf("expected min zoom for a degenerate viewport, got %v", f.Zoom)
	}
}

func TestZoomForResolutionClamp(t *testing.T) {
	if ZoomForResolution(1e9) != MinZoom {
		t.Fatalf("expected min zoom")
	}
	if ZoomForResolution(1e-9) != MaxZoom {
		t.Fatalf("expected max zoom")
	}
}

func TestChapterZoom(t *testing.T) {
	if got := ChapterZoom(8.81, 1920); math.Abs(got-8.81) > 1e-12 {
		t.Fatalf("reference width should not change zoom: %v", got)
	}
	if got := ChapterZoom(8.81, 948); math.Abs(got-8) > 1e-12 {
		t.Fatalf("low anchor: %v", got)
	}
	if ChapterZoom(10, 600) >= ChapterZoom(10, 1200) {
		t.Fatalf("narrower containers should zoom out")
	}
}
