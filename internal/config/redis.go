package config

// Redis connection settings for the redis-backed listing store.

import (
    "context"
    "crypto/tls"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the server described by the environment and
// pings it. A failed ping closes the client and is returned: the store has
// no fallback when redis is selected.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
    opts, err := redisOptions()
    if err != nil {
        return nil, err
    }
    client := redis.NewClient(opts)

    pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := client.Ping(pingCtx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
    }
    return client, nil
}

// redisOptions reads, in order of precedence:
//   REDIS_URL – redis:// or rediss:// URL, overrides everything below
//   REDIS_HOST + REDIS_PORT, or REDIS_ADDR (host:port), default localhost:6379
//   REDIS_PASSWORD, REDIS_DB (default 0)
//   REDIS_TLS – "true" or "1" enables TLS 1.2+
func redisOptions() (*redis.Options, error) {
    if raw := os.Getenv("REDIS_URL"); raw != "" {
        opts, err := redis.ParseURL(raw)
        if err != nil {
            return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
        }
        return opts, nil
    }

    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    opts := &redis.Options{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
    }
    if s := os.Getenv("REDIS_DB"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil {
            return nil, fmt.Errorf("invalid REDIS_DB %q: %w", s, err)
        }
        opts.DB = n
    }
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opts, nil
}
