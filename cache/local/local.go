// Package local implements cache.Cache in process memory on ttlcache. It
// serves single-instance deployments that run without Redis.
package local

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/cache"
)

// Compile-time interface check.
var _ cache.Cache = (*Cache)(nil)

// Cache keeps entries in a ttlcache with touch-on-hit disabled, so an
// entry expires a fixed time after it was written.
type Cache struct {
	items *ttlcache.Cache[string, []byte]
	done  chan struct{}
}

// New creates a cache and starts its expiry janitor. Call Close to stop it.
func New() *Cache {
	c := &Cache{
		items: ttlcache.New[string, []byte](
			ttlcache.WithTTL[string, []byte](cache.DefaultTTL),
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
		done: make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		c.items.Start()
	}()
	return c
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, prometheus.ErrCacheMiss
	}
	v := item.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	c.items.Set(key, v, ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// Len reports the number of entries, expired ones included until the
// janitor removes them.
func (c *Cache) Len() int { return c.items.Len() }

func (c *Cache) Ping(_ context.Context) error { return nil }

// Close stops the janitor and waits for it to exit. Stop is a no-op until
// the janitor goroutine has started, so it is retried.
func (c *Cache) Close() error {
	for {
		c.items.Stop()
		select {
		case <-c.done:
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}
}
