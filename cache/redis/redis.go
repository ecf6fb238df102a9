// Package redis implements cache.Cache on Redis. Entries are plain strings
// written with SET ... EX so Redis enforces the expiry.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/cache"
)

// Compile-time interface check.
var _ cache.Cache = (*Cache)(nil)

// Cache is a cache.Cache backed by a Redis client.
type Cache struct {
	client *redis.Client
}

// New wraps an existing client. The cache takes ownership and closes it.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Open parses a redis:// URL and connects lazily.
func Open(url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("prometheus/cache/redis: parse url: %w", err)
	}
	return New(redis.NewClient(opts)), nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, prometheus.ErrCacheMiss
		}
		return nil, fmt.Errorf("prometheus/cache/redis: get %s: %w", key, err)
	}
	return b, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("prometheus/cache/redis: set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("prometheus/cache/redis: delete %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
