package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// putIndexedScript writes the record and appends the id to every index list
// that lacks it. All index lists are decoded before anything is written so a
// malformed list aborts the script without partial writes. Redis runs a
// script as a single atomic step.
//
// KEYS[1] record key, KEYS[2..n] index keys; ARGV[1] record, ARGV[2] id.
var putIndexedScript = redis.NewScript(`
local id = ARGV[2]
local updates = {}
for i = 2, #KEYS do
  local raw = redis.call('GET', KEYS[i])
  local ids = {}
  if raw then
    ids = cjson.decode(raw)
  end
  local found = false
  for _, v in ipairs(ids) do
    if v == id then
      found = true
      break
    end
  end
  if not found then
    table.insert(ids, id)
    updates[#updates + 1] = {KEYS[i], cjson.encode(ids)}
  end
end
redis.call('SET', KEYS[1], ARGV[1])
for _, u in ipairs(updates) do
  redis.call('SET', u[1], u[2])
end
return #updates
`)

// Redis stores every value as a plain string key. Prefix, when set, is
// prepended to all keys so several environments can share one database.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client. The caller keeps ownership of the
// connection settings; Close closes the client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) k(key string) string { return r.prefix + key }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.k(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *Redis) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.k(key)
	}
	vals, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([][]byte, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = []byte(s)
		}
	}
	return out, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.k(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.k(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// CompareAndSwap uses WATCH/MULTI: if another client touches the key between
// the read and EXEC, Redis aborts the transaction with TxFailedErr.
func (r *Redis) CompareAndSwap(ctx context.Context, key string, prev, next []byte) error {
	full := r.k(key)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, full).Bytes()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}
		if prev == nil && exists {
			return ErrConflict
		}
		if prev != nil && (!exists || !bytes.Equal(cur, prev)) {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, full, next, 0)
			return nil
		})
		return err
	}, full)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict), errors.Is(err, redis.TxFailedErr):
		return ErrConflict
	default:
		return fmt.Errorf("redis cas %s: %w", key, err)
	}
}

func (r *Redis) PutIndexed(ctx context.Context, key string, value []byte, id string, indexKeys ...string) error {
	keys := make([]string, 0, len(indexKeys)+1)
	keys = append(keys, r.k(key))
	for _, ik := range indexKeys {
		keys = append(keys, r.k(ik))
	}
	if err := putIndexedScript.Run(ctx, r.client, keys, value, id).Err(); err != nil {
		return fmt.Errorf("redis put indexed %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
