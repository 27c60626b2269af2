package storage

import (
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ExploreWilder/MainWebsite/internal/tracks"
)

const formField = "gpx"

// RegisterRoutes exposes the GPX upload of a book, admins only. The track
// name is the "name" form value, or the uploaded file name without its
// extension.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/tracks/:bookID", authMiddleware, func(c *fiber.Ctx) error {
		bookID, err := strconv.Atoi(c.Params("bookID"))
		if err != nil || bookID < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid book id")
		}
		fh, err := c.FormFile(formField)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "gpx file required")
		}
		if svc.maxBytes > 0 && fh.Size > int64(svc.maxBytes) {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, ErrTooLarge.Error())
		}
		name := c.FormValue("name")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
		}

		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		adminID, _ := c.Locals("admin_id").(string)
		up, err := svc.SaveGPX(c.UserContext(), adminID, bookID, name, b)
		if err != nil {
			var invalid *InvalidGPXError
			switch {
			case errors.Is(err, ErrTooLarge):
				return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
			case errors.Is(err, tracks.ErrInvalidName):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.As(err, &invalid):
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"upload":   up,
			"webtrack": "/map/webtracks/" + strconv.Itoa(bookID) + "/" + up.Name + ".webtrack",
		})
	})
}
