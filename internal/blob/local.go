package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/iliyamo/rental-listing/internal/utils"
)

// LocalStore keeps objects on disk under Dir. Its URLs point at the
// service's own /files/ route and carry a signed token naming the key.
type LocalStore struct {
	Dir     string
	BaseURL string
	Secret  string
}

func NewLocalStore(dir, baseURL, secret string) *LocalStore {
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), Secret: secret}
}

func (s *LocalStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	return os.Rename(tmp.Name(), p)
}

func (s *LocalStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	tok, err := utils.NewObjectToken(s.Secret, key, ttl)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return s.BaseURL + "/files/" + escapeKey(key) + "?token=" + url.QueryEscape(tok), nil
}

// Open returns the object at key if token grants access to it. The caller
// closes the file.
func (s *LocalStore) Open(key, token string) (*os.File, error) {
	granted, err := utils.ParseObjectToken(s.Secret, token)
	if err != nil || granted != key {
		return nil, utils.ErrInvalidToken
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// path maps key to a file under Dir and rejects keys escaping it.
func (s *LocalStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean[1:] != key {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.Dir, filepath.FromSlash(key)), nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
