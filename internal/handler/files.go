package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-listing/internal/blob"
)

// FilesHandler serves objects of the local blob store to holders of a
// signed URL.
type FilesHandler struct {
	Store *blob.LocalStore
}

func NewFilesHandler(s *blob.LocalStore) *FilesHandler { return &FilesHandler{Store: s} }

// Get streams the object named by the wildcard path when ?token= grants it.
func (h *FilesHandler) Get(c echo.Context) error {
	key := c.Param("*")
	// echo leaves the parameter escaped when it routed on the raw path
	if c.Request().URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(key); err == nil {
			key = unescaped
		}
	}
	f, err := h.Store.Open(key, c.QueryParam("token"))
	switch {
	case errors.Is(err, blob.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "File not found"})
	case err != nil:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fail(c, err, "Failed to read file")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=3600")
	http.ServeContent(c.Response(), c.Request(), info.Name(), info.ModTime(), f)
	return nil
}
