package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
)

func tileServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	tile := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for x := 0; x < 256; x++ {
		for y := 0; y < 256; y++ {
			tile.Set(x, y, color.RGBA{R: 230, G: 230, B: 220, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, tile); err != nil {
		t.Fatalf("encode tile: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRenderPNG(t *testing.T) {
	var hits int32
	srv := tileServer(t, &hits)
	r := New(
		WithSize(320, 200),
		WithTiles("test", srv.URL+"/%[2]d/%[3]d/%[4]d.png", ""),
		WithCacheDir(t.TempDir()),
	)

	p, err := geometry.Build([]geometry.TrackSample{
		{Longitude: 175.58, Latitude: -39.13, CumulativeDistance: 0},
		{Longitude: 175.63, Latitude: -39.14, CumulativeDistance: 4500},
		{Longitude: 175.68, Latitude: -39.12, CumulativeDistance: 9100},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var out bytes.Buffer
	if err := r.Render(context.Background(), p, &out); err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(&out)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Fatalf("unexpected size %v", b)
	}
	if atomic.LoadInt32(&hits) == 0 {
		t.Fatalf("expected tiles to be fetched")
	}
}

func TestRenderCancelled(t *testing.T) {
	p, err := geometry.Build([]geometry.TrackSample{
		{Longitude: 0, Latitude: 0}, {Longitude: 0.1, Latitude: 0, CumulativeDistance: 11000},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().Render(ctx, p, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestOptionsIgnoreInvalid(t *testing.T) {
	r := New(WithSize(0, 10), WithTiles("x", "", ""))
	if r.width != DefaultWidth || r.height != DefaultHeight || r.tiles == nil || r.tiles.Name == "x" {
		t.Fatalf("invalid options should be ignored: %+v", r)
	}
}
