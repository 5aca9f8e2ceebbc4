// Package kv is the flat key-value persistence layer. Keys are plain strings,
// values are JSON documents stored as raw bytes. Index lists are values that
// hold a JSON array of record ids.
//
// Besides plain get/set, every backend provides two atomic primitives that
// the record layer relies on:
//
//   - CompareAndSwap replaces a value only if nobody changed it since it was
//     read, so concurrent profile edits cannot silently drop each other.
//   - PutIndexed writes a record and appends its id to a set of index lists
//     in one step, so a record can never exist without being indexed.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("kv: key not found")
	// ErrConflict is returned by CompareAndSwap when the stored value no
	// longer matches the expected one.
	ErrConflict = errors.New("kv: value changed concurrently")
)

// Store is implemented by every backend.
type Store interface {
	// Get returns the raw value of key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// MGet returns one entry per key, nil for keys that do not exist.
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// CompareAndSwap stores next under key only if the current value equals
	// prev byte for byte. A nil prev means the key must not exist yet.
	CompareAndSwap(ctx context.Context, key string, prev, next []byte) error
	// PutIndexed stores value under key and appends id to each index list
	// that does not already contain it, all or nothing.
	PutIndexed(ctx context.Context, key string, value []byte, id string, indexKeys ...string) error
	// Close releases the backend's resources.
	Close() error
}

// GetJSON decodes the value of key into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// GetIndex returns the ids held by an index list. A missing list is empty.
func GetIndex(ctx context.Context, s Store, key string) ([]string, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeIndex(key, raw)
}

func decodeIndex(key string, raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("kv: index %s is not a list: %w", key, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// appendUnique appends id to ids unless present. The bool reports whether
// the list changed.
func appendUnique(ids []string, id string) ([]string, bool) {
	for _, v := range ids {
		if v == id {
			return ids, false
		}
	}
	return append(ids, id), true
}

func jsonList(ids []string) ([]byte, error) {
	return json.Marshal(ids)
}
