package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/toastnco/prometheus/cache"
	"github.com/toastnco/prometheus/cache/local"
	"github.com/toastnco/prometheus/cache/redis"
	"github.com/toastnco/prometheus/config"
	"github.com/toastnco/prometheus/internal/logging"
	"github.com/toastnco/prometheus/store"
	"github.com/toastnco/prometheus/store/cached"
	"github.com/toastnco/prometheus/store/memory"
	"github.com/toastnco/prometheus/store/mongo"
	"github.com/toastnco/prometheus/store/postgres"
	"github.com/toastnco/prometheus/store/sqlite"
)

const pingTimeout = 10 * time.Second

func newLogger(cfg *config.Config) (*slog.Logger, func() error, error) {
	logger, closeFn, err := logging.New(logging.Options{
		Level:  cfg.Bot.LogLevel,
		Format: cfg.Bot.LogFormat,
		File:   cfg.Bot.LogFile,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func newHTTPClient(cfg *config.Config) (*http.Client, error) {
	timeout, err := cfg.HTTPTimeout()
	if err != nil {
		return nil, err
	}
	return &http.Client{Timeout: timeout}, nil
}

// openDurable connects the configured durable store.
func openDurable(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Databases.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN())
	case config.DriverMongo:
		return mongo.Open(cfg.Databases.MongoDB, cfg.Databases.MongoDBName)
	case config.DriverSQLite:
		return sqlite.Open(cfg.Databases.SQLite)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Databases.Driver)
	}
}

// openCache connects the configured cache, or returns nil for none.
func openCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Databases.Cache {
	case config.CacheRedis:
		return redis.Open(cfg.Databases.Redis)
	case config.CacheLocal:
		return local.New(), nil
	case config.CacheNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache %q", cfg.Databases.Cache)
	}
}

// openStore connects the durable store and cache, pings both concurrently
// and composes them. Any failure closes what was opened.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	durable, err := openDurable(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Databases.Driver, err)
	}
	c, err := openCache(cfg)
	if err != nil {
		_ = durable.Close()
		return nil, fmt.Errorf("open %s cache: %w", cfg.Databases.Cache, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(pingCtx)
	g.Go(func() error {
		if err := durable.Ping(gctx); err != nil {
			return fmt.Errorf("ping %s store: %w", cfg.Databases.Driver, err)
		}
		return nil
	})
	if c != nil {
		g.Go(func() error {
			if err := c.Ping(gctx); err != nil {
				return fmt.Errorf("ping %s cache: %w", cfg.Databases.Cache, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = durable.Close()
		if c != nil {
			_ = c.Close()
		}
		return nil, err
	}

	logger.Info("store connected",
		"driver", cfg.Databases.Driver,
		"cache", cfg.Databases.Cache,
	)

	if c == nil {
		return durable, nil
	}
	return cached.New(durable, c, cached.WithLogger(logger)), nil
}
