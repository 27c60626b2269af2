// Package viewer loads one track for an interactive map page: a single
// fetch, decode, path build and view fit, then hover sync. Any failure is
// final for the page and surfaces as one alert message.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/paulmach/orb"

	"github.com/ExploreWilder/MainWebsite/internal/framing"
	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/webtrack"
	"github.com/ExploreWilder/MainWebsite/internal/widgetsync"
)

const alertPrefix = "Failed to fetch the WebTrack: "

// maxBody bounds the downloaded track.
const maxBody = 64 << 20

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Viewer is the loaded state of one map page. On failure only Alert and the
// disarmed Sync are meaningful.
type Viewer struct {
	Track    *webtrack.Track
	Path     *geometry.Path
	Globe    framing.ViewFrame
	Flat     framing.ViewFrame
	Start    geometry.Waypoint
	End      geometry.Waypoint
	Features []geometry.Feature
	Sync     *widgetsync.Sync
	alert    string
}

func (v *Viewer) Ready() bool { return v.Path != nil }

// Alert is the user-visible failure message, empty once loaded.
func (v *Viewer) Alert() string { return v.alert }

type Loader struct {
	Client    Doer
	Surfaces  widgetsync.Surfaces
	Projector geometry.Projector
	Framing   framing.Options
	// viewport of the 2D map in pixels
	Width, Height int
	Padding       int
	SyncOptions   []widgetsync.Option
	Logger        *slog.Logger
}

// Load fetches url once, without retry. The returned Viewer is never nil.
func (l *Loader) Load(ctx context.Context, url string) (*Viewer, error) {
	v := &Viewer{Sync: widgetsync.New(l.Surfaces, l.SyncOptions...)}

	body, contentType, err := l.fetch(ctx, url)
	if err != nil {
		return l.fail(v, url, err)
	}
	track, err := webtrack.DecodeResponse(contentType, body)
	if err != nil {
		return l.fail(v, url, err)
	}
	path, err := track.Path()
	if err != nil {
		return l.fail(v, url, err)
	}

	v.Track = track
	v.Path = path
	v.Globe = framing.FitPath(path, l.Framing)
	padding := l.Padding
	if padding == 0 {
		padding = framing.DefaultPadding
	}
	v.Flat = framing.FitExtent(path, l.Width, l.Height, padding)
	v.Start, v.End = geometry.Markers(path)

	v.Features = append(v.Features, trackFeature(track, path))
	for _, w := range track.Waypoints {
		v.Features = append(v.Features, geometry.NewPointFeature(w))
	}
	v.Features = append(v.Features, geometry.NewPointFeature(v.Start), geometry.NewPointFeature(v.End))

	v.Sync.Load(path, l.Projector)
	return v, nil
}

// trackFeature draws a track recorded in several segments as a multi-line so
// the gaps between segments stay visible.
func trackFeature(t *webtrack.Track, p *geometry.Path) geometry.Feature {
	if len(t.Segments) < 2 {
		return geometry.NewLineFeature(p)
	}
	lines := make([]orb.LineString, 0, len(t.Segments))
	for _, seg := range t.Segments {
		ls := make(orb.LineString, len(seg.Points))
		for i, s := range seg.Points {
			ls[i] = orb.Point{s.Longitude, s.Latitude}
		}
		lines = append(lines, ls)
	}
	return geometry.NewMultiLineFeature(lines)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &FetchError{Kind: NetworkFailure, Err: err}
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", &FetchError{Kind: NetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, "", &FetchError{Kind: NetworkFailure, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if strings.TrimSpace(msg) == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, "", &FetchError{Kind: ServerError, Status: resp.StatusCode, Message: msg}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (l *Loader) fail(v *Viewer, url string, err error) (*Viewer, error) {
	v.alert = alertMessage(err)
	if l.Logger != nil {
		l.Logger.Warn("track load failed", "url", url, "error", err)
	}
	return v, err
}

func alertMessage(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Kind == ServerError {
			return alertPrefix + fe.Message
		}
		return alertPrefix + "network failure"
	}
	var ge *geometry.GeometryError
	if errors.As(err, &ge) {
		return fmt.Sprintf("The track has too few points (%d).", ge.Count)
	}
	return "Failed to read the WebTrack: " + err.Error()
}
