// Package thumbnail renders the static map image of a track, used as the
// social network preview of a book.
package thumbnail

import (
	"context"
	"fmt"
	"image/color"
	"io"

	sm "github.com/flopp/go-staticmaps"
	"github.com/fogleman/gg"
	"github.com/golang/geo/s2"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 450
)

var (
	trackColor = color.RGBA{R: 0, G: 0, B: 255, A: 178}
	startColor = color.RGBA{R: 0, G: 160, B: 0, A: 255}
	endColor   = color.RGBA{R: 200, G: 0, B: 0, A: 255}
)

type Renderer struct {
	width, height int
	tiles         *sm.TileProvider
	cacheDir      string
}

type Option func(*Renderer)

func WithSize(w, h int) Option {
	return func(r *Renderer) {
		if w > 0 && h > 0 {
			r.width, r.height = w, h
		}
	}
}

// WithTiles sets the tile server. urlPattern is formatted with the shard,
// zoom, x and y, in that order.
func WithTiles(name, urlPattern, attribution string) Option {
	return func(r *Renderer) {
		if urlPattern == "" {
			return
		}
		r.tiles = &sm.TileProvider{
			Name:        name,
			Attribution: attribution,
			TileSize:    256,
			URLPattern:  urlPattern,
		}
	}
}

// WithCacheDir stores downloaded tiles under dir.
func WithCacheDir(dir string) Option {
	return func(r *Renderer) { r.cacheDir = dir }
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		width:  DefaultWidth,
		height: DefaultHeight,
		tiles:  sm.NewTileProviderOpenStreetMaps(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render draws the path with its start and end markers and writes a PNG.
func (r *Renderer) Render(ctx context.Context, p *geometry.Path, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := sm.NewContext()
	m.SetSize(r.width, r.height)
	m.SetTileProvider(r.tiles)
	if r.cacheDir != "" {
		m.SetCache(sm.NewTileCache(r.cacheDir, 0o755))
	}

	positions := make([]s2.LatLng, p.Len())
	for i := range positions {
		s := p.Sample(i)
		positions[i] = s2.LatLngFromDegrees(s.Latitude, s.Longitude)
	}
	m.AddObject(sm.NewPath(positions, trackColor, 3))
	m.AddObject(sm.NewMarker(positions[0], startColor, 16))
	m.AddObject(sm.NewMarker(positions[len(positions)-1], endColor, 16))

	img, err := m.Render()
	if err != nil {
		return fmt.Errorf("render static map: %w", err)
	}

	dc := gg.NewContextForImage(img)
	label := geometry.FormatKilometers(p.TotalLength())
	tw, th := dc.MeasureString(label)
	dc.SetRGBA(1, 1, 1, 0.8)
	dc.DrawRectangle(4, 4, tw+8, th+8)
	dc.Fill()
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(label, 8, 8, 0, 1)
	return dc.EncodePNG(w)
}
