package kv

import (
	"bytes"
	"context"
	"sync"
)

// Memory is an in-process Store used for local development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// fault, when set, is called before each staged write of PutIndexed
	// with the key about to be written. A non-nil return aborts the whole
	// operation and nothing is committed.
	fault func(key string) error
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// SetFault installs a hook used to simulate a crash in the middle of
// PutIndexed. Pass nil to remove it.
func (m *Memory) SetFault(fn func(key string) error) {
	m.mu.Lock()
	m.fault = fn
	m.mu.Unlock()
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (m *Memory) MGet(_ context.Context, keys []string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if v, ok := m.data[k]; ok {
			out[i] = clone(v)
		}
	}
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = clone(value)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) CompareAndSwap(_ context.Context, key string, prev, next []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[key]
	switch {
	case prev == nil && ok:
		return ErrConflict
	case prev != nil && (!ok || !bytes.Equal(cur, prev)):
		return ErrConflict
	}
	m.data[key] = clone(next)
	return nil
}

func (m *Memory) PutIndexed(_ context.Context, key string, value []byte, id string, indexKeys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Stage every write first; commit only when all of them succeeded.
	staged := make(map[string][]byte, len(indexKeys)+1)
	if err := m.check(key); err != nil {
		return err
	}
	staged[key] = clone(value)
	for _, ik := range indexKeys {
		ids, err := decodeIndex(ik, m.data[ik])
		if err != nil {
			return err
		}
		ids, changed := appendUnique(ids, id)
		if !changed {
			continue
		}
		if err := m.check(ik); err != nil {
			return err
		}
		raw, err := jsonList(ids)
		if err != nil {
			return err
		}
		staged[ik] = raw
	}
	for k, v := range staged {
		m.data[k] = v
	}
	return nil
}

func (m *Memory) check(key string) error {
	if m.fault == nil {
		return nil
	}
	return m.fault(key)
}

// Keys returns every stored key. Intended for tests.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

func (m *Memory) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
