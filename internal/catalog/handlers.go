package catalog

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/books/:bookID/tracks", func(c *fiber.Ctx) error {
		bookID, err := strconv.Atoi(c.Params("bookID"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid book id")
		}
		tracks, err := svc.Tracks(c.Context(), bookID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(tracks)
	})

	r.Get("/books/:bookID/tracks/:name", func(c *fiber.Ctx) error {
		bookID, err := strconv.Atoi(c.Params("bookID"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid book id")
		}
		t, err := svc.Track(c.Context(), bookID, c.Params("name"))
		if errors.Is(err, pgx.ErrNoRows) {
			return fiber.NewError(fiber.StatusNotFound, "track not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(t)
	})

	r.Get("/waypoints/search", func(c *fiber.Ctx) error {
		lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
		lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
		if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}
		radius := 5.0
		if v := c.Query("radius_km"); v != "" {
			r, err := strconv.ParseFloat(v, 64)
			if err != nil || r <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid radius_km")
			}
			radius = r
		}
		results, err := svc.SearchWaypoints(c.Context(), lat, lng, radius, c.Query("category"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(results)
	})
}
