// Package livesync runs the cursor sync of a track view on the server: a
// client posts pointer events on a websocket and receives the draw
// commands, which are mirrored to every screen following the same view.
package livesync

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/story"
	"github.com/ExploreWilder/MainWebsite/internal/stream"
	"github.com/ExploreWilder/MainWebsite/internal/tracks"
	"github.com/ExploreWilder/MainWebsite/internal/webtrack"
	"github.com/ExploreWilder/MainWebsite/internal/widgetsync"
)

const (
	defaultWidth  = 800
	defaultHeight = 600
	pathLocal     = "livesync.path"
)

// TrackSource loads the decoded path of a book track.
type TrackSource interface {
	Track(ctx context.Context, bookID int, name string) (*webtrack.Track, *geometry.Path, error)
}

type Options struct {
	IdleTimeout time.Duration
	Story       *story.Story
	Logger      *slog.Logger
}

type Handler struct {
	tracks TrackSource
	hub    *stream.Hub
	opts   Options
	log    *slog.Logger
}

func NewHandler(src TrackSource, hub *stream.Hub, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handler{tracks: src, hub: hub, opts: opts, log: log}
}

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Get("/ws/:bookID/:name", h.loadTrack, websocket.New(h.serve))
}

// loadTrack answers plain HTTP errors before the upgrade.
func (h *Handler) loadTrack(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	bookID, err := strconv.Atoi(c.Params("bookID"))
	if err != nil {
		return fiber.ErrNotFound
	}
	_, p, err := h.tracks.Track(c.UserContext(), bookID, c.Params("name"))
	if err != nil {
		if errors.Is(err, tracks.ErrNotFound) || errors.Is(err, tracks.ErrInvalidName) {
			return fiber.ErrNotFound
		}
		h.log.Error("live sync track load failed", "book_id", bookID, "name", c.Params("name"), "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load track")
	}
	c.Locals(pathLocal, p)
	return c.Next()
}

func (h *Handler) serve(c *websocket.Conn) {
	p, ok := c.Locals(pathLocal).(*geometry.Path)
	if !ok {
		return
	}
	viewID := c.Query("view")
	if viewID == "" {
		viewID = uuid.NewString()
	}
	width, height := dimension(c.Query("width"), defaultWidth), dimension(c.Query("height"), defaultHeight)
	vp := FitViewport(p, width, height)

	client := h.hub.Register(viewID)
	rec := widgetsync.NewRecorder(func(cmd widgetsync.Command) {
		b, err := json.Marshal(cmd)
		if err != nil {
			return
		}
		h.hub.Broadcast(context.Background(), viewID, b)
	})
	sy := widgetsync.New(rec.Surfaces(), widgetsync.WithIdleTimeout(h.opts.IdleTimeout))
	sess := newSession(sy, rec, p, h.opts.Story, vp)

	greeting := Hello{Kind: "hello", ViewID: viewID, Viewport: vp, Statistics: p.Statistics()}
	if h.opts.Story != nil {
		start := h.opts.Story.Start(float64(width))
		greeting.Story = &start
	}
	hello, _ := json.Marshal(greeting)
	if err := c.WriteMessage(websocket.TextMessage, hello); err != nil {
		h.hub.Unregister(client)
		return
	}

	stream.Pump(c, h.hub, client, func(msg []byte) {
		if err := sess.handle(msg); err != nil {
			h.log.Debug("live sync event ignored", "view_id", viewID, "error", err)
		}
	})
	sy.Reset()
}

func dimension(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
