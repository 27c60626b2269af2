package livesync

import (
	"math"

	"github.com/ExploreWilder/MainWebsite/internal/framing"
	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/shared/geo"
)

const tileSize = 256.0

// Viewport is the map canvas of a client: the Web Mercator view centered
// on Center at a fractional tile zoom, Width x Height pixels.
type Viewport struct {
	Center [2]float64 `json:"center"`
	Zoom   float64    `json:"zoom"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
}

func (v Viewport) valid() bool {
	return v.Width > 0 && v.Height > 0 && v.Zoom >= framing.MinZoom && v.Zoom <= framing.MaxZoom
}

// FitViewport is the viewport a client shows after loading the path.
func FitViewport(p *geometry.Path, width, height int) Viewport {
	f := framing.FitExtent(p, width, height, framing.DefaultPadding)
	return Viewport{Center: f.Center, Zoom: f.Zoom, Width: width, Height: height}
}

// Projector maps samples to canvas pixels, origin top left.
func (v Viewport) Projector() geometry.Projector {
	res := 2 * math.Pi * geo.EarthRadius / tileSize / math.Pow(2, v.Zoom)
	cx, cy := geo.ToMercator(v.Center[0], v.Center[1])
	w, h := float64(v.Width)/2, float64(v.Height)/2
	return geometry.ProjectorFunc(func(s geometry.TrackSample) (float64, float64) {
		x, y := geo.ToMercator(s.Longitude, s.Latitude)
		return (x-cx)/res + w, (cy-y)/res + h
	})
}
