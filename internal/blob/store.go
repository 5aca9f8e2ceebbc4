// Package blob stores uploaded images and hands out time-limited URLs for
// them. The bucket is private; a signed URL is the only way to read an
// object.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("object not found")

// Store is an object store with signed read URLs.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
