package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-listing/internal/apperr"
	"github.com/iliyamo/rental-listing/internal/blob"
	"github.com/iliyamo/rental-listing/internal/metrics"
	"github.com/iliyamo/rental-listing/internal/middleware"
)

// UploadHandler accepts image uploads for properties and avatars.
type UploadHandler struct {
	Uploader *blob.Uploader
	Metrics  *metrics.Metrics
}

func NewUploadHandler(u *blob.Uploader, m *metrics.Metrics) *UploadHandler {
	return &UploadHandler{Uploader: u, Metrics: m}
}

// Upload stores the multipart "file" field and returns its key and a signed URL.
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, apperr.NewValidation("No file provided"), "")
	}
	f, err := fh.Open()
	if err != nil {
		h.Metrics.RecordUpload(false)
		return fail(c, apperr.Wrap(apperr.Storage, "Failed to upload image", err), "")
	}
	defer f.Close()

	ctx, cancel := requestCtx(c)
	defer cancel()

	out, err := h.Uploader.Upload(ctx, middleware.UserID(c), fh.Filename, f, fh.Size, fh.Header.Get(echo.HeaderContentType))
	h.Metrics.RecordUpload(err == nil)
	if err != nil {
		return fail(c, err, "Internal server error during image upload")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"filePath": out.FilePath,
		"url":      out.URL,
	})
}
