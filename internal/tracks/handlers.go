package tracks

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ExploreWilder/MainWebsite/internal/framing"
	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/webtrack"
)

const (
	geojsonContentType = "application/geo+json"
	pngContentType     = "image/png"
)

type Handler struct {
	store   *Store
	framing framing.Options
}

func NewHandler(store *Store, opts framing.Options) *Handler {
	return &Handler{store: store, framing: opts}
}

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Get("/webtracks/:bookID/:file", h.file(".webtrack", webtrack.ContentType, h.store.WebTrack))
	r.Get("/geojsons/:bookID/:file", h.file(".geojson", geojsonContentType, h.store.GeoJSON))
	r.Get("/profile/:bookID/:file", h.file("", webtrack.ProfileContentType, h.store.Profile))
	r.Get("/static_map/:bookID/:file", h.file(".png", pngContentType, h.store.StaticMap))
	r.Get("/tracks/:bookID/:name/info", h.info)
}

type loadFunc func(ctx context.Context, bookID int, name string) ([]byte, error)

func (h *Handler) file(ext, contentType string, load loadFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookID, err := strconv.Atoi(c.Params("bookID"))
		if err != nil {
			return fiber.ErrNotFound
		}
		file := c.Params("file")
		name := strings.TrimSuffix(file, ext)
		if ext != "" && name == file {
			return fiber.ErrNotFound
		}
		b, err := load(c.UserContext(), bookID, name)
		if err != nil {
			return trackError(c, err)
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(b)
	}
}

// trackError answers failed generations with a plain text body, shown
// verbatim by the map pages.
func trackError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidName):
		return fiber.ErrNotFound
	case errors.Is(err, ErrEmptyGPX):
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusInternalServerError).SendString(ErrEmptyGPX.Error())
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(fiber.StatusInternalServerError).SendString(errorName(err))
}

type InfoResponse struct {
	BookID     int                 `json:"book_id"`
	Name       string              `json:"name"`
	Statistics geometry.Statistics `json:"statistics"`
	Header     webtrack.TrackInfo  `json:"header"`
	Points     int                 `json:"points"`
	Globe      framing.ViewFrame   `json:"globe"`
	Flat       framing.ViewFrame   `json:"flat"`
	Start      geometry.Waypoint   `json:"start"`
	End        geometry.Waypoint   `json:"end"`
	Waypoints  []geometry.Waypoint `json:"waypoints"`
}

func (h *Handler) info(c *fiber.Ctx) error {
	bookID, err := strconv.Atoi(c.Params("bookID"))
	if err != nil {
		return fiber.ErrNotFound
	}
	name := c.Params("name")
	t, p, err := h.store.Track(c.UserContext(), bookID, name)
	if err != nil {
		return trackError(c, err)
	}

	width := c.QueryInt("width", 800)
	height := c.QueryInt("height", 600)
	if width <= 0 || height <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "width and height must be positive")
	}

	start, end := geometry.Markers(p)
	waypoints := t.Waypoints
	if waypoints == nil {
		waypoints = []geometry.Waypoint{}
	}
	return c.JSON(InfoResponse{
		BookID:     bookID,
		Name:       name,
		Statistics: p.Statistics(),
		Header:     t.Info,
		Points:     p.Len(),
		Globe:      framing.FitPath(p, h.framing),
		Flat:       framing.FitExtent(p, width, height, framing.DefaultPadding),
		Start:      start,
		End:        end,
		Waypoints:  waypoints,
	})
}
