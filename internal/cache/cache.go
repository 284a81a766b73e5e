package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/ashare-data/internal/config"
)

// Cache wraps a Redis client with JSON encoding and a fixed TTL.
// A nil receiver or a Cache built without a host is a no-op.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Cache from config. An empty host disables caching entirely.
func New(cfg config.RedisConfig, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		logger.Info("query cache disabled, no redis host configured")
		return &Cache{logger: logger, ttl: ttl}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetJSON looks up key and decodes the stored JSON into dest.
// Returns false on miss, on a disabled cache, or on any Redis error.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("cache entry malformed, dropping", "key", key, "error", err)
		c.rdb.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores v under key with the cache TTL. Errors are logged, not returned.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes key if the cache is enabled.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
