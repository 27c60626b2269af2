package viewer

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/webtrack"
	"github.com/ExploreWilder/MainWebsite/internal/widgetsync"
)

func encodedTrack(t *testing.T, samples []geometry.TrackSample) []byte {
	t.Helper()
	track := &webtrack.Track{
		Format:   webtrack.FormatName,
		Version:  webtrack.CurrentVersion,
		Segments: []webtrack.Segment{{WithElevation: true, Points: samples}},
		Waypoints: []geometry.Waypoint{{
			Longitude: 175.65, Latitude: -39.15, Elevation: 1120, HasElevation: true,
			Symbol: "Shelter", Name: "Mangatepopo hut", Category: geometry.Shelter,
		}},
	}
	var buf bytes.Buffer
	if err := webtrack.Encode(&buf, track); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func tongariro() []geometry.TrackSample {
	return []geometry.TrackSample{
		{Longitude: 175.58, Latitude: -39.13, Elevation: 1120, CumulativeDistance: 0},
		{Longitude: 175.63, Latitude: -39.14, Elevation: 1850, CumulativeDistance: 4500},
		{Longitude: 175.68, Latitude: -39.12, Elevation: 760, CumulativeDistance: 9100},
	}
}

func newLoader(rec *widgetsync.Recorder) *Loader {
	return &Loader{
		Surfaces: rec.Surfaces(),
		Projector: geometry.ProjectorFunc(func(s geometry.TrackSample) (float64, float64) {
			return s.CumulativeDistance / 10, 0
		}),
		Width:  800,
		Height: 600,
	}
}

func TestLoadWebTrack(t *testing.T) {
	body := encodedTrack(t, tongariro())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", webtrack.ContentType)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	var cmds []widgetsync.Command
	l := newLoader(widgetsync.NewRecorder(func(c widgetsync.Command) { cmds = append(cmds, c) }))
	v, err := l.Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !v.Ready() || v.Alert() != "" {
		t.Fatalf("viewer should be ready")
	}
	if v.Start.Name != "Start" || v.End.Name != "End" || v.Start.Category != geometry.Start {
		t.Fatalf("unexpected markers: %+v %+v", v.Start, v.End)
	}
	// line, one waypoint, start and end
	if len(v.Features) != 4 || v.Features[0].Kind() != geometry.KindLine || v.Features[1].Category() != geometry.Shelter {
		t.Fatalf("unexpected features: %d", len(v.Features))
	}
	if v.Globe.Orientation == nil || v.Globe.Extent < 500 {
		t.Fatalf("unexpected globe frame: %+v", v.Globe)
	}
	if v.Flat.Zoom < 1 || v.Flat.Zoom > 19 {
		t.Fatalf("unexpected flat frame: %+v", v.Flat)
	}
	if !v.Sync.Loaded() {
		t.Fatalf("sync should be armed")
	}

	v.Sync.ChartHover(1)
	if len(cmds) == 0 {
		t.Fatalf("armed sync should draw")
	}
}

func TestLoadSegmentedTrackDrawsMultiLine(t *testing.T) {
	samples := tongariro()
	track := &webtrack.Track{
		Format:  webtrack.FormatName,
		Version: webtrack.CurrentVersion,
		Segments: []webtrack.Segment{
			{WithElevation: true, Points: samples[:2]},
			{WithElevation: true, Points: samples[2:]},
		},
	}
	var buf bytes.Buffer
	if err := webtrack.Encode(&buf, track); err != nil {
		t.Fatalf("encode: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", webtrack.ContentType)
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	v, err := newLoader(widgetsync.NewRecorder(func(widgetsync.Command) {})).Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v.Path.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", v.Path.Len())
	}
	// multi-line, start and end
	if len(v.Features) != 3 || v.Features[0].Kind() != geometry.KindMultiLine {
		t.Fatalf("expected a multi-line track feature, got %d features", len(v.Features))
	}
}

func TestLoadProfileByContentType(t *testing.T) {
	p, err := geometry.Build(tongariro())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	body, err := webtrack.EncodeProfile(webtrack.FromPath(p, nil))
	if err != nil {
		t.Fatalf("encode profile: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", webtrack.ProfileContentType)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	v, err := newLoader(widgetsync.NewRecorder(func(widgetsync.Command) {})).Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v.Path.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", v.Path.Len())
	}
}

func TestLoadServerErrorAlertsVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("empty GPX file"))
	}))
	defer srv.Close()

	var cmds []widgetsync.Command
	l := newLoader(widgetsync.NewRecorder(func(c widgetsync.Command) { cmds = append(cmds, c) }))
	v, err := l.Load(context.Background(), srv.URL)
	if !errors.Is(err, ErrServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Status != 500 || fe.Message != "empty GPX file" {
		t.Fatalf("unexpected fetch error: %+v", fe)
	}
	if v == nil || v.Ready() || v.Alert() != "Failed to fetch the WebTrack: empty GPX file" {
		t.Fatalf("unexpected alert: %q", v.Alert())
	}

	// disarmed for the page lifetime
	v.Sync.ChartHover(0.5)
	v.Sync.MapHover(0, 1, 1)
	if len(cmds) != 0 || v.Sync.State() != widgetsync.Idle {
		t.Fatalf("failed viewer must stay idle")
	}
}

func TestLoadNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v, err := newLoader(widgetsync.NewRecorder(func(widgetsync.Command) {})).Load(context.Background(), url)
	if !errors.Is(err, ErrNetworkFailure) || errors.Is(err, ErrServerError) {
		t.Fatalf("expected network failure, got %v", err)
	}
	if !strings.HasPrefix(v.Alert(), "Failed to fetch the WebTrack") {
		t.Fatalf("unexpected alert %q", v.Alert())
	}
}

func TestLoadTruncatedTrack(t *testing.T) {
	body := encodedTrack(t, tongariro())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", webtrack.ContentType)
		_, _ = w.Write(body[:len(body)/2])
	}))
	defer srv.Close()

	v, err := newLoader(widgetsync.NewRecorder(func(widgetsync.Command) {})).Load(context.Background(), srv.URL)
	if !errors.Is(err, webtrack.ErrTruncated) {
		t.Fatalf("expected truncated, got %v", err)
	}
	if v.Ready() || v.Alert() == "" || v.Sync.Loaded() {
		t.Fatalf("viewer should be disarmed")
	}
}

func TestLoadTooFewPoints(t *testing.T) {
	body := encodedTrack(t, tongariro()[:1])
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	v, err := newLoader(widgetsync.NewRecorder(func(widgetsync.Command) {})).Load(context.Background(), srv.URL)
	if !errors.Is(err, geometry.ErrTooFewPoints) {
		t.Fatalf("expected too few points, got %v", err)
	}
	if v.Alert() != "The track has too few points (1)." {
		t.Fatalf("unexpected alert %q", v.Alert())
	}
}
