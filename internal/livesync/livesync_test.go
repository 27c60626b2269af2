package livesync

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/story"
	"github.com/ExploreWilder/MainWebsite/internal/stream"
	"github.com/ExploreWilder/MainWebsite/internal/tracks"
	"github.com/ExploreWilder/MainWebsite/internal/webtrack"
	"github.com/ExploreWilder/MainWebsite/internal/widgetsync"
)

func testPath(t *testing.T) *geometry.Path {
	t.Helper()
	p, err := geometry.Build([]geometry.TrackSample{
		{Longitude: 0, Latitude: 0, Elevation: 10, CumulativeDistance: 0},
		{Longitude: 0.004, Latitude: 0, Elevation: 50, CumulativeDistance: 400},
		{Longitude: 0.009, Latitude: 0, Elevation: 20, CumulativeDistance: 1000},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return p
}

type fakeSource struct {
	path *geometry.Path
	err  error
}

func (f fakeSource) Track(ctx context.Context, bookID int, name string) (*webtrack.Track, *geometry.Path, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if name != "demo" {
		return nil, nil, tracks.ErrNotFound
	}
	return &webtrack.Track{}, f.path, nil
}

type recorded struct {
	mu   sync.Mutex
	cmds []widgetsync.Command
}

func (r *recorded) add(c widgetsync.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, c)
}

func (r *recorded) kinds() []widgetsync.CommandKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]widgetsync.CommandKind, len(r.cmds))
	for i, c := range r.cmds {
		out[i] = c.Kind
	}
	return out
}

func TestViewportProjector(t *testing.T) {
	vp := Viewport{Center: [2]float64{0.0045, 0}, Zoom: 15, Width: 800, Height: 600}
	proj := vp.Projector()

	x, y := proj.Project(geometry.TrackSample{Longitude: 0.0045})
	if math.Abs(x-400) > 1e-6 || math.Abs(y-300) > 1e-6 {
		t.Fatalf("center should be mid canvas, got %v %v", x, y)
	}
	east, _ := proj.Project(geometry.TrackSample{Longitude: 0.009})
	_, north := proj.Project(geometry.TrackSample{Longitude: 0.0045, Latitude: 0.001})
	if east <= 400 || north >= 300 {
		t.Fatalf("unexpected orientation: east %v north %v", east, north)
	}
}

func TestFitViewportContainsPath(t *testing.T) {
	p := testPath(t)
	vp := FitViewport(p, 800, 600)
	if !vp.valid() {
		t.Fatalf("invalid viewport %+v", vp)
	}
	proj := vp.Projector()
	for _, s := range p.Samples() {
		x, y := proj.Project(s)
		if x < 0 || x > 800 || y < 0 || y > 600 {
			t.Fatalf("sample outside canvas: %v %v", x, y)
		}
	}
}

func newTestSession(t *testing.T, st *story.Story) (*session, *widgetsync.Sync, *recorded) {
	t.Helper()
	rec := &recorded{}
	r := widgetsync.NewRecorder(rec.add)
	sy := widgetsync.New(r.Surfaces())
	p := testPath(t)
	return newSession(sy, r, p, st, FitViewport(p, 800, 600)), sy, rec
}

func TestSessionChartHover(t *testing.T) {
	s, sy, rec := newTestSession(t, nil)

	if err := s.handle([]byte(`{"type":"chart_hover","fraction":0.5}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	cur, ok := sy.Cursor()
	if !ok || cur.PathDistance != 500 || sy.State() != widgetsync.CursorOnChart {
		t.Fatalf("unexpected cursor %+v", cur)
	}
	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[0] != widgetsync.CmdHiker || kinds[1] != widgetsync.CmdTooltip {
		t.Fatalf("unexpected commands %v", kinds)
	}
}

func TestSessionMapHoverAt(t *testing.T) {
	s, sy, _ := newTestSession(t, nil)

	mid := s.path.PointAtDistance(700)
	x, y := s.viewport.Projector().Project(mid)
	body, _ := json.Marshal(Event{Type: EventMapHoverAt, X: x, Y: y})
	if err := s.handle(body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	cur, ok := sy.Cursor()
	if !ok || math.Abs(cur.PathDistance-700) > 1e-6 || sy.State() != widgetsync.CursorOnMap {
		t.Fatalf("unexpected cursor %+v", cur)
	}

	if err := s.handle([]byte(`{"type":"map_leave"}`)); err != nil || sy.State() != widgetsync.Idle {
		t.Fatalf("leave: %v %v", err, sy.State())
	}
}

func TestSessionFlyTo(t *testing.T) {
	s, sy, rec := newTestSession(t, nil)

	if err := s.handle([]byte(`{"type":"fly_to"}`)); err == nil {
		t.Fatalf("expected error without frame")
	}
	if err := s.handle([]byte(`{"type":"fly_to","frame":{"center":[1,2],"zoom":9}}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if sy.State() != widgetsync.Animating || rec.kinds()[len(rec.kinds())-1] != widgetsync.CmdFlyTo {
		t.Fatalf("expected animation")
	}
	if err := s.handle([]byte(`{"type":"animation_done"}`)); err != nil || sy.State() != widgetsync.Idle {
		t.Fatalf("animation done: %v %v", err, sy.State())
	}
}

const testStory = `{
	"showMarkers": true,
	"chapters": [
		{
			"id": "arrival",
			"location": {"center": [175.54, -39.2], "zoom": 8.81},
			"showContext": [175.5, -39.2],
			"onChapterEnter": [{"layer": "routes", "opacity": 1}],
			"onChapterExit": [{"layer": "routes", "opacity": 0.2}]
		},
		{"id": "crossing", "location": {"center": [175.65, -39.13], "zoom": 12}}
	]
}`

func TestSessionChapter(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	if err := s.handle([]byte(`{"type":"chapter","chapter":"arrival"}`)); err == nil {
		t.Fatalf("expected error without story")
	}
	if err := s.handle([]byte(`{"type":"chapter_exit","chapter":"arrival"}`)); err == nil {
		t.Fatalf("expected error without story")
	}

	st, err := story.Parse([]byte(testStory))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, sy, rec := newTestSession(t, st)
	s.viewport.Width = 1920
	if err := s.handle([]byte(`{"type":"chapter","chapter":"arrival"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if sy.State() != widgetsync.Animating {
		t.Fatalf("expected animation")
	}
	want := []widgetsync.CommandKind{widgetsync.CmdFlyTo, widgetsync.CmdContext, widgetsync.CmdStoryMarker, widgetsync.CmdLayerOpacity}
	kinds := rec.kinds()
	if len(kinds) != len(want) {
		t.Fatalf("unexpected commands %v", kinds)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("command %d: got %s want %s", i, kinds[i], k)
		}
	}
	if f := rec.cmds[0].Frame; f == nil || math.Abs(f.Zoom-8.81) > 1e-9 {
		t.Fatalf("unexpected frame %+v", f)
	}
	if f := rec.cmds[1].Frame; f == nil || f.Center != [2]float64{175.5, -39.2} || f.Zoom != story.ContextZoom {
		t.Fatalf("unexpected context frame %+v", f)
	}
	if c := rec.cmds[3]; c.Layer != "routes" || *c.Opacity != 1 {
		t.Fatalf("unexpected entry opacity %+v", c)
	}

	if err := s.handle([]byte(`{"type":"chapter_exit","chapter":"arrival"}`)); err != nil {
		t.Fatalf("exit: %v", err)
	}
	if c := rec.cmds[len(rec.cmds)-1]; c.Kind != widgetsync.CmdLayerOpacity || *c.Opacity != 0.2 {
		t.Fatalf("unexpected exit opacity %+v", c)
	}

	// a chapter without overview hides it
	if err := s.handle([]byte(`{"type":"chapter","chapter":"crossing"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !containsKind(rec.kinds(), widgetsync.CmdHideContext) {
		t.Fatalf("expected hide_context in %v", rec.kinds())
	}

	if err := s.handle([]byte(`{"type":"chapter","chapter":"missing"}`)); !errors.Is(err, story.ErrUnknownChapter) {
		t.Fatalf("expected unknown chapter, got %v", err)
	}
	if err := s.handle([]byte(`{"type":"chapter_exit","chapter":"missing"}`)); !errors.Is(err, story.ErrUnknownChapter) {
		t.Fatalf("expected unknown chapter, got %v", err)
	}
}

func containsKind(kinds []widgetsync.CommandKind, k widgetsync.CommandKind) bool {
	for _, got := range kinds {
		if got == k {
			return true
		}
	}
	return false
}

func TestSessionViewport(t *testing.T) {
	s, sy, _ := newTestSession(t, nil)
	_ = s.handle([]byte(`{"type":"chart_hover","fraction":0.2}`))

	if err := s.handle([]byte(`{"type":"viewport","viewport":{"zoom":40,"width":10,"height":10}}`)); err == nil {
		t.Fatalf("expected invalid viewport")
	}
	if err := s.handle([]byte(`{"type":"viewport","viewport":{"center":[0,0],"zoom":14,"width":400,"height":300}}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := sy.Cursor(); ok || s.viewport.Width != 400 {
		t.Fatalf("viewport change should reset the cursor")
	}
}

func TestSessionBadEvents(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	if err := s.handle([]byte(`{"type":"dance"}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected unknown event, got %v", err)
	}
	if err := s.handle([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestHandlerRequiresUpgrade(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/sync"), NewHandler(fakeSource{path: testPath(t)}, stream.NewHub(nil, nil), Options{}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sync/ws/1/demo", nil))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

func startApp(t *testing.T, src TrackSource, hub *stream.Hub) string {
	t.Helper()
	return startAppWith(t, src, hub, Options{IdleTimeout: time.Minute})
}

func startAppWith(t *testing.T, src TrackSource, hub *stream.Hub, opts Options) string {
	t.Helper()
	app := fiber.New()
	stream.RegisterRoutes(app.Group("/stream"), hub)
	RegisterRoutes(app.Group("/sync"), NewHandler(src, hub, opts))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
		ln.Close()
	})
	return "ws://" + ln.Addr().String()
}

func TestHandlerErrorsBeforeUpgrade(t *testing.T) {
	base := startApp(t, fakeSource{path: testPath(t)}, stream.NewHub(nil, nil))

	_, resp, err := websocket.DefaultDialer.Dial(base+"/sync/ws/1/unknown", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	_, resp, err = websocket.DefaultDialer.Dial(base+"/sync/ws/abc/demo", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a bad book id, got %v", err)
	}

	broken := startApp(t, fakeSource{err: errors.New("disk")}, stream.NewHub(nil, nil))
	_, resp, err = websocket.DefaultDialer.Dial(broken+"/sync/ws/1/demo", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if err := json.Unmarshal(msg, v); err != nil {
		t.Fatalf("decode %q: %v", msg, err)
	}
}

func TestHandlerSyncAndMirror(t *testing.T) {
	hub := stream.NewHub(nil, nil)
	base := startApp(t, fakeSource{path: testPath(t)}, hub)

	mirror, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/view-1", nil)
	if err != nil {
		t.Fatalf("dial mirror: %v", err)
	}
	defer mirror.Close()
	deadline := time.Now().Add(time.Second)
	for hub.Clients("view-1") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"/sync/ws/1/demo?view=view-1&width=1000&height=500", nil)
	if err != nil {
		t.Fatalf("dial sync: %v", err)
	}
	defer conn.Close()

	var hello Hello
	readJSON(t, conn, &hello)
	if hello.Kind != "hello" || hello.ViewID != "view-1" || hello.Viewport.Width != 1000 || hello.Statistics.TotalLength != 1000 {
		t.Fatalf("unexpected hello %+v", hello)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chart_hover","fraction":0.5}`)); err != nil {
		t.Fatalf("write error: %v", err)
	}

	var hiker, tooltip widgetsync.Command
	readJSON(t, conn, &hiker)
	readJSON(t, conn, &tooltip)
	if hiker.Kind != widgetsync.CmdHiker || hiker.Distance != 500 {
		t.Fatalf("unexpected hiker %+v", hiker)
	}
	if hiker.Marker == nil || hiker.Marker.Category != geometry.Hiker || hiker.Marker.Name != "0.5 km" {
		t.Fatalf("unexpected hiker marker %+v", hiker.Marker)
	}
	if tooltip.Kind != widgetsync.CmdTooltip || tooltip.Label != "0.5 km" {
		t.Fatalf("unexpected tooltip %+v", tooltip)
	}

	var mirrored widgetsync.Command
	readJSON(t, mirror, &mirrored)
	if mirrored.Kind != widgetsync.CmdHiker {
		t.Fatalf("mirror got %+v", mirrored)
	}

	// bad events keep the socket open
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"fly_to","frame":{"center":[1,2],"zoom":3}}`))
	var fly widgetsync.Command
	readJSON(t, conn, &fly)
	if fly.Kind != widgetsync.CmdHideTooltip {
		t.Fatalf("expected the tooltip hidden first, got %+v", fly)
	}
	readJSON(t, conn, &fly)
	if fly.Kind != widgetsync.CmdFlyTo || fly.Frame == nil || fly.Frame.Zoom != 3 {
		t.Fatalf("unexpected fly_to %+v", fly)
	}
}

func TestHandlerGeneratesViewID(t *testing.T) {
	base := startApp(t, fakeSource{path: testPath(t)}, stream.NewHub(nil, nil))
	conn, _, err := websocket.DefaultDialer.Dial(base+"/sync/ws/1/demo", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var hello Hello
	readJSON(t, conn, &hello)
	if len(hello.ViewID) != 36 || !strings.Contains(hello.ViewID, "-") || hello.Viewport.Width != defaultWidth {
		t.Fatalf("unexpected hello %+v", hello)
	}
	if hello.Story != nil {
		t.Fatalf("no story configured, got %+v", hello.Story)
	}
}

func TestHandlerHelloCarriesStoryStart(t *testing.T) {
	st, err := story.Parse([]byte(testStory))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	base := startAppWith(t, fakeSource{path: testPath(t)}, stream.NewHub(nil, nil), Options{IdleTimeout: time.Minute, Story: st})
	conn, _, err := websocket.DefaultDialer.Dial(base+"/sync/ws/1/demo?width=1920", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var hello Hello
	readJSON(t, conn, &hello)
	if hello.Story == nil || hello.Story.Center != [2]float64{175.54, -39.2} || math.Abs(hello.Story.Zoom-8.81) > 1e-9 {
		t.Fatalf("unexpected story start %+v", hello.Story)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chapter_exit","chapter":"arrival"}`)); err != nil {
		t.Fatalf("write error: %v", err)
	}
	var cmd widgetsync.Command
	readJSON(t, conn, &cmd)
	if cmd.Kind != widgetsync.CmdLayerOpacity || cmd.Layer != "routes" || cmd.Opacity == nil || *cmd.Opacity != 0.2 {
		t.Fatalf("unexpected command %+v", cmd)
	}
}
