// Package cache defines the key-value cache that fronts the durable store.
//
// Values are opaque bytes with a fixed expiry set at write time. Reads do
// not extend an entry's lifetime.
package cache

import (
	"context"
	"strconv"
	"time"
)

// DefaultTTL is how long a cached record lives after it is written.
const DefaultTTL = 120 * time.Second

// Cache is implemented by every cache backend. Get returns
// prometheus.ErrCacheMiss for absent or expired keys. Delete of an absent
// key is not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Record kinds used as key prefixes.
const (
	KindServer  = "server"
	KindWelcome = "welcome"
)

// Key returns the cache key for a record kind and guild, "<kind>_<guildID>".
func Key(kind string, guildID uint64) string {
	return kind + "_" + strconv.FormatUint(guildID, 10)
}

// ServerKey returns the key of a guild's settings record.
func ServerKey(guildID uint64) string { return Key(KindServer, guildID) }

// WelcomeKey returns the key of a guild's welcome record.
func WelcomeKey(guildID uint64) string { return Key(KindWelcome, guildID) }
