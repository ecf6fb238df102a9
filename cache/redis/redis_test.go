package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/toastnco/prometheus"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "server_1", []byte(`{"id":1}`), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, "server_1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"id":1}` {
		t.Errorf("got %q", got)
	}
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "welcome_9")
	if !errors.Is(err, prometheus.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "server_2", []byte("x"), 120*time.Second); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("server_2"); ttl != 120*time.Second {
		t.Errorf("ttl = %v, want 120s", ttl)
	}

	mr.FastForward(121 * time.Second)

	if _, err := c.Get(ctx, "server_2"); !errors.Is(err, prometheus.ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestCacheDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "welcome_3", []byte("x"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "welcome_3"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("welcome_3") {
		t.Error("key still present after delete")
	}
	// Deleting an absent key is fine.
	if err := c.Delete(ctx, "welcome_3"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestCacheTransportError(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "server_4")
	if err == nil {
		t.Fatal("expected error with server down")
	}
	if errors.Is(err, prometheus.ErrCacheMiss) {
		t.Fatal("transport failure must not look like a miss")
	}
}
