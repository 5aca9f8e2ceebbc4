package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/iliyamo/rental-listing/internal/apperr"
)

const (
	// DefaultMaxBytes is the size limit of one upload.
	DefaultMaxBytes = 5 << 20
	// DefaultURLTTL is how long a returned image URL stays readable.
	DefaultURLTTL = 365 * 24 * time.Hour
)

// Uploaded describes a stored object.
type Uploaded struct {
	FilePath string `json:"filePath"`
	URL      string `json:"url"`
}

// Uploader names, stores and signs user uploads.
type Uploader struct {
	Store    Store
	TTL      time.Duration
	MaxBytes int64
	Now      func() time.Time
}

func NewUploader(store Store, ttl time.Duration, maxBytes int64) *Uploader {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{Store: store, TTL: ttl, MaxBytes: maxBytes, Now: time.Now}
}

// Upload stores r under <userID>/<unixMillis>-<filename> and returns the
// key with a signed URL. No URL is returned unless the write succeeded.
func (u *Uploader) Upload(ctx context.Context, userID, filename string, r io.Reader, size int64, contentType string) (Uploaded, error) {
	if size > u.MaxBytes {
		return Uploaded{}, apperr.NewValidation("File is too large")
	}
	key := ObjectKey(userID, filename, u.Now())

	if err := u.Store.Put(ctx, key, io.LimitReader(r, size), size, contentType); err != nil {
		return Uploaded{}, apperr.Wrap(apperr.Storage, "Failed to upload image", err)
	}
	signed, err := u.Store.SignedURL(ctx, key, u.TTL)
	if err != nil {
		return Uploaded{}, apperr.Wrap(apperr.Storage, "Failed to upload image", err)
	}
	return Uploaded{FilePath: key, URL: signed}, nil
}

// ObjectKey builds the storage key of an upload. Only the base name of the
// client's filename is kept.
func ObjectKey(userID, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		name = "file"
	}
	return fmt.Sprintf("%s/%d-%s", userID, at.UnixMilli(), name)
}
