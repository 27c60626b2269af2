package framing

import (
	"math"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/shared/geo"
)

const (
	MinZoom        = 1.0
	MaxZoom        = 19.0
	DefaultPadding = 5
	tileSize       = 256.0
)

// FitExtent is the exact Web Mercator bounding-box fit of the 2D viewer:
// the zoom at which the path bounds, plus padding pixels on each side, fill
// a width x height viewport.
func FitExtent(p *geometry.Path, width, height, padding int) ViewFrame {
	b := p.Bound()
	minX, minY := geo.ToMercator(b.Min[0], b.Min[1])
	maxX, maxY := geo.ToMercator(b.Max[0], b.Max[1])

	cx, cy := geo.FromMercator((minX+maxX)/2, (minY+maxY)/2)
	frame := ViewFrame{
		Center: [2]float64{cx, cy},
		Extent: math.Max(maxX-minX, maxY-minY),
	}

	w := float64(width - 2*padding)
	h := float64(height - 2*padding)
	if w <= 0 || h <= 0 {
		frame.Zoom = MinZoom
		return frame
	}
	res := math.Max((maxX-minX)/w, (maxY-minY)/h)
	frame.Zoom = ZoomForResolution(res)
	return frame
}

// ZoomForResolution converts meters per pixel to a fractional tile zoom
// clamped to [MinZoom, MaxZoom].
func ZoomForResolution(res float64) float64 {
	if res <= 0 {
		return MaxZoom
	}
	z := math.Log2(2 * math.Pi * geo.EarthRadius / tileSize / res)
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Chapter zoom levels are authored for a 1920 px wide container. The
// correction is linear in the container width, anchored at zoom 8.81 for
// 1920 px and 8 for 948 px.
const (
	chapterRefZoom  = 8.81
	chapterRefWidth = 1920.0
	chapterLowZoom  = 8.0
	chapterLowWidth = 948.0
)

// ChapterZoom rescales an authored chapter zoom for the actual container width.
func ChapterZoom(zoom, containerWidth float64) float64 {
	a := (chapterRefZoom - chapterLowZoom) / (chapterRefWidth - chapterLowWidth)
	b := chapterRefZoom - a*chapterRefWidth
	return zoom * (a*containerWidth + b) / chapterRefZoom
}
