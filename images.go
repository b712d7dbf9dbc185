package vaultsync

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const maxImageWidth = 2000

// resizeImage decodes a PNG and, when width is positive and smaller than
// the source, scales it down keeping the aspect ratio. It returns the
// original bytes untouched when no resize is needed.
func resizeImage(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		return data, nil
	}
	if width > maxImageWidth {
		width = maxImageWidth
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= width {
		return data, nil
	}
	newH := h * width / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// handleImage serves a released image. Admins may also fetch unreleased
// images so the dashboard can preview them. ?w=N requests a scaled copy.
func (a *App) handleImage(c echo.Context) error {
	name := c.Param("name")
	width := 0
	if v := c.QueryParam("w"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.String(http.StatusBadRequest, "w must be a positive integer")
		}
		width = min(n, maxImageWidth)
	}

	img, err := a.Store.GetImage(c.Request().Context(), name, !a.isAdminRequest(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}

	if !img.Released {
		c.Response().Header().Set("Cache-Control", "private, no-store")
	}

	etag := `"` + img.ContentHash
	if width > 0 {
		etag += "-w" + strconv.Itoa(width)
	}
	etag += `"`
	c.Response().Header().Set("ETag", etag)
	if etagMatches(c.Request().Header.Get("If-None-Match"), etag) {
		return c.NoContent(http.StatusNotModified)
	}

	data, err := resizeImage(img.Data, width)
	if err != nil {
		return fmt.Errorf("image %q: %w", name, err)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

func (a *App) isAdminRequest(c echo.Context) bool {
	return a.Config.AdminEnabled() && IsAdmin(c)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}
