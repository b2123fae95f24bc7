// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agora/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Cache is a JSON cache-aside layer over Redis. A nil *Cache, or one without
// a client, is valid and simply never hits.
type Cache struct {
	client *redis.Client
}

// New wraps an existing client.
func New(client *redis.Client) *Cache {
	if client != nil {
		client.AddHook(metricsHook{})
	}
	return &Cache{client: client}
}

// Connect dials addr (host:port or redis:// URL). When Redis is unreachable it
// logs a warning and returns a disabled cache rather than failing.
func Connect(ctx context.Context, addr string) *Cache {
	if strings.TrimSpace(addr) == "" {
		return &Cache{}
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			observability.Logger.WarnContext(ctx, "Invalid REDIS_URL, continuing without cache", slog.String("error", err.Error()))
			return &Cache{}
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		observability.Logger.WarnContext(ctx, "Redis connection failed, continuing without cache", slog.String("error", err.Error()))
		_ = client.Close()
		return &Cache{}
	}

	observability.Logger.InfoContext(ctx, "Redis connected successfully")
	return New(client)
}

// Enabled reports whether the cache has a client.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Close releases the client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// GetJSON gets key and unmarshals into dest. Returns (found, error).
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which fills dest and
// reports whether anything was found. Only found values are stored.
// Redis failures degrade to calling fetch.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() (bool, error)) (bool, error) {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		observability.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		observability.CacheRequests.WithLabelValues("hit").Inc()
		return true, nil
	}
	if c.Enabled() {
		observability.CacheRequests.WithLabelValues("miss").Inc()
	}

	found, err = fetch()
	if err != nil || !found {
		return found, err
	}

	if err := c.SetJSON(ctx, key, dest, ttl); err != nil {
		observability.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return true, nil
}

// Invalidate deletes the given keys. Failures are logged, not returned.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		observability.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("keys", strings.Join(keys, ",")),
			slog.String("error", err.Error()),
		)
	}
}

func keyf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
