// Package postgres implements store.Store on PostgreSQL through a pgx pool.
// The tables are "servers" and "welcome", keyed by guild snowflake.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/guild"
	promstore "github.com/toastnco/prometheus/store"
	"github.com/toastnco/prometheus/welcome"
)

// compile-time interface check
var _ promstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. The store takes ownership and closes it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to the database described by dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("prometheus/postgres: connect: %w", err)
	}
	return New(pool), nil
}

// Pool returns the underlying pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Guild Store ====================

func (s *Store) GetGuild(ctx context.Context, guildID uint64) (*guild.Settings, error) {
	var (
		g  guild.Settings
		id int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, beta_program, created_at, updated_at FROM servers WHERE id = $1`,
		int64(guildID),
	).Scan(&id, &g.BetaProgram, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, prometheus.ErrGuildNotFound
		}
		return nil, fmt.Errorf("prometheus/postgres: get guild: %w", err)
	}
	g.ID = uint64(id)
	return &g, nil
}

func (s *Store) CreateGuild(ctx context.Context, g *guild.Settings) error {
	g.Stamp()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO servers (id, beta_program, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		int64(g.ID), g.BetaProgram, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return prometheus.ErrAlreadyExists
		}
		return fmt.Errorf("prometheus/postgres: create guild: %w", err)
	}
	return nil
}

func (s *Store) UpdateGuild(ctx context.Context, g *guild.Settings) error {
	g.Stamp()
	_, err := s.pool.Exec(ctx, `
INSERT INTO servers (id, beta_program, created_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    beta_program = EXCLUDED.beta_program,
    updated_at   = EXCLUDED.updated_at`,
		int64(g.ID), g.BetaProgram, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("prometheus/postgres: update guild: %w", err)
	}
	return nil
}

// ==================== Welcome Store ====================

func (s *Store) GetWelcome(ctx context.Context, guildID uint64) (*welcome.Settings, error) {
	var w welcome.Settings
	var serverID, channelID int64
	err := s.pool.QueryRow(ctx,
		`SELECT server_id, channel_id, created_at, updated_at FROM welcome WHERE server_id = $1`,
		int64(guildID),
	).Scan(&serverID, &channelID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, prometheus.ErrWelcomeNotFound
		}
		return nil, fmt.Errorf("prometheus/postgres: get welcome: %w", err)
	}
	w.GuildID = uint64(serverID)
	w.ChannelID = uint64(channelID)
	return &w, nil
}

func (s *Store) CreateWelcome(ctx context.Context, w *welcome.Settings) error {
	w.Stamp()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO welcome (server_id, channel_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		int64(w.GuildID), int64(w.ChannelID), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return prometheus.ErrAlreadyExists
		}
		return fmt.Errorf("prometheus/postgres: create welcome: %w", err)
	}
	return nil
}

func (s *Store) UpdateWelcome(ctx context.Context, w *welcome.Settings) error {
	w.Stamp()
	_, err := s.pool.Exec(ctx, `
INSERT INTO welcome (server_id, channel_id, created_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (server_id) DO UPDATE SET
    channel_id = EXCLUDED.channel_id,
    updated_at = EXCLUDED.updated_at`,
		int64(w.GuildID), int64(w.ChannelID), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("prometheus/postgres: update welcome: %w", err)
	}
	return nil
}

func (s *Store) DeleteWelcome(ctx context.Context, guildID uint64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM welcome WHERE server_id = $1`, int64(guildID))
	if err != nil {
		return fmt.Errorf("prometheus/postgres: delete welcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return prometheus.ErrWelcomeNotFound
	}
	return nil
}

// ==================== Helpers ====================

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
