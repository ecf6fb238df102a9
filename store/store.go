package store

import (
	"context"

	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/welcome"
)

// Store is the unified storage interface for guild configuration.
// Every durable backend and the cache-aside wrapper implement it.
//
// Get methods return prometheus.ErrGuildNotFound or
// prometheus.ErrWelcomeNotFound when no record exists. Create methods return
// prometheus.ErrAlreadyExists on a duplicate key. Update methods upsert.
type Store interface {
	// Guild methods
	GetGuild(ctx context.Context, guildID uint64) (*guild.Settings, error)
	CreateGuild(ctx context.Context, s *guild.Settings) error
	UpdateGuild(ctx context.Context, s *guild.Settings) error

	// Welcome methods
	GetWelcome(ctx context.Context, guildID uint64) (*welcome.Settings, error)
	CreateWelcome(ctx context.Context, s *welcome.Settings) error
	UpdateWelcome(ctx context.Context, s *welcome.Settings) error
	DeleteWelcome(ctx context.Context, guildID uint64) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ guild.Store   = Store(nil)
	_ welcome.Store = Store(nil)
)
