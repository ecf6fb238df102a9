// Package cached wraps a durable store.Store with a cache-aside layer.
//
// Reads try the cache first and fall through to the durable store on a miss
// without writing back. Only creates populate the cache: they commit to the
// durable store first and then write the cache with a fixed TTL. Updates and
// deletes write the durable store and then evict the key synchronously, so
// the next read observes the change.
//
// Once the durable store has committed, a create reports success. A failed
// cache write after that point is logged and the key evicted.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/cache"
	"github.com/toastnco/prometheus/guild"
	promstore "github.com/toastnco/prometheus/store"
	"github.com/toastnco/prometheus/welcome"
)

// compile-time interface check
var _ promstore.Store = (*Store)(nil)

// Store is the cache-aside store. It owns both handles.
type Store struct {
	durable promstore.Store
	cache   cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides cache.DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithLogger sets the logger for cache tracing and write warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New fronts durable with c.
func New(durable promstore.Store, c cache.Cache, opts ...Option) *Store {
	s := &Store{
		durable: durable,
		cache:   c,
		ttl:     cache.DefaultTTL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ==================== Guild Store ====================

func (s *Store) GetGuild(ctx context.Context, guildID uint64) (*guild.Settings, error) {
	return readThrough(ctx, s, cache.ServerKey(guildID), func() (*guild.Settings, error) {
		return s.durable.GetGuild(ctx, guildID)
	})
}

func (s *Store) CreateGuild(ctx context.Context, g *guild.Settings) error {
	if err := s.durable.CreateGuild(ctx, g); err != nil {
		return err
	}
	s.populate(ctx, cache.ServerKey(g.ID), g)
	return nil
}

func (s *Store) UpdateGuild(ctx context.Context, g *guild.Settings) error {
	if err := s.durable.UpdateGuild(ctx, g); err != nil {
		return err
	}
	return s.evict(ctx, cache.ServerKey(g.ID))
}

// ==================== Welcome Store ====================

func (s *Store) GetWelcome(ctx context.Context, guildID uint64) (*welcome.Settings, error) {
	return readThrough(ctx, s, cache.WelcomeKey(guildID), func() (*welcome.Settings, error) {
		return s.durable.GetWelcome(ctx, guildID)
	})
}

func (s *Store) CreateWelcome(ctx context.Context, w *welcome.Settings) error {
	if err := s.durable.CreateWelcome(ctx, w); err != nil {
		return err
	}
	s.populate(ctx, cache.WelcomeKey(w.GuildID), w)
	return nil
}

func (s *Store) UpdateWelcome(ctx context.Context, w *welcome.Settings) error {
	if err := s.durable.UpdateWelcome(ctx, w); err != nil {
		return err
	}
	return s.evict(ctx, cache.WelcomeKey(w.GuildID))
}

// DeleteWelcome evicts the key even when the durable record was already
// gone, then reports ErrWelcomeNotFound.
func (s *Store) DeleteWelcome(ctx context.Context, guildID uint64) error {
	err := s.durable.DeleteWelcome(ctx, guildID)
	if err != nil && !errors.Is(err, prometheus.ErrWelcomeNotFound) {
		return err
	}
	if evictErr := s.evict(ctx, cache.WelcomeKey(guildID)); evictErr != nil {
		return evictErr
	}
	return err
}

// ==================== Core ====================

func (s *Store) Migrate(ctx context.Context) error {
	return s.durable.Migrate(ctx)
}

// Ping checks the durable store and the cache concurrently.
func (s *Store) Ping(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.durable.Ping(ctx); err != nil {
			return fmt.Errorf("prometheus/cached: ping store: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("prometheus/cached: ping cache: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close closes both handles and reports every failure.
func (s *Store) Close() error {
	var result *multierror.Error
	if err := s.cache.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("prometheus/cached: close cache: %w", err))
	}
	if err := s.durable.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("prometheus/cached: close store: %w", err))
	}
	return result.ErrorOrNil()
}

// ==================== Helpers ====================

func readThrough[T any](ctx context.Context, s *Store, key string, load func() (*T, error)) (*T, error) {
	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("prometheus/cached: decode %s: %w", key, err)
		}
		s.logger.Debug("cache hit", "key", key)
		return &v, nil
	case !errors.Is(err, prometheus.ErrCacheMiss):
		return nil, err
	}

	// No write-back: a miss racing a delete must not resurrect the record.
	s.logger.Debug("cache miss", "key", key)
	return load()
}

// populate caches a freshly created record. The durable write has already
// committed, so failures are logged and never returned.
func (s *Store) populate(ctx context.Context, key string, v any) {
	err := s.put(ctx, key, v)
	if err == nil {
		return
	}
	s.logger.Warn("cache write failed after commit", "key", key, "error", err)
	if evictErr := s.evict(ctx, key); evictErr != nil {
		s.logger.Warn("cache evict failed", "key", key, "error", evictErr)
	}
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("prometheus/cached: encode %s: %w", key, err)
	}
	return s.cache.Set(ctx, key, raw, s.ttl)
}

func (s *Store) evict(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}
