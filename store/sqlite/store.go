// Package sqlite implements store.Store on an embedded SQLite database
// (modernc.org/sqlite, no cgo). It mirrors the postgres schema and is meant
// for single-process deployments and local development.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/guild"
	promstore "github.com/toastnco/prometheus/store"
	"github.com/toastnco/prometheus/welcome"
)

// compile-time interface check
var _ promstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn. Use ":memory:" for a
// throwaway database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("prometheus/sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids
	// SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Guild Store ====================

func (s *Store) GetGuild(ctx context.Context, guildID uint64) (*guild.Settings, error) {
	var (
		g                    guild.Settings
		id                   int64
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, beta_program, created_at, updated_at FROM servers WHERE id = ?`,
		int64(guildID),
	).Scan(&id, &g.BetaProgram, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, prometheus.ErrGuildNotFound
		}
		return nil, fmt.Errorf("prometheus/sqlite: get guild: %w", err)
	}
	g.ID = uint64(id)
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return &g, nil
}

func (s *Store) CreateGuild(ctx context.Context, g *guild.Settings) error {
	g.Stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO servers (id, beta_program, created_at, updated_at)
VALUES (?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		int64(g.ID), g.BetaProgram, formatTime(g.CreatedAt), formatTime(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: create guild: %w", err)
	}
	return insertedOrExists(res)
}

func (s *Store) UpdateGuild(ctx context.Context, g *guild.Settings) error {
	g.Stamp()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO servers (id, beta_program, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    beta_program = excluded.beta_program,
    updated_at   = excluded.updated_at`,
		int64(g.ID), g.BetaProgram, formatTime(g.CreatedAt), formatTime(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: update guild: %w", err)
	}
	return nil
}

// ==================== Welcome Store ====================

func (s *Store) GetWelcome(ctx context.Context, guildID uint64) (*welcome.Settings, error) {
	var (
		w                    welcome.Settings
		serverID, channelID  int64
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT server_id, channel_id, created_at, updated_at FROM welcome WHERE server_id = ?`,
		int64(guildID),
	).Scan(&serverID, &channelID, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, prometheus.ErrWelcomeNotFound
		}
		return nil, fmt.Errorf("prometheus/sqlite: get welcome: %w", err)
	}
	w.GuildID = uint64(serverID)
	w.ChannelID = uint64(channelID)
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

func (s *Store) CreateWelcome(ctx context.Context, w *welcome.Settings) error {
	w.Stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO welcome (server_id, channel_id, created_at, updated_at)
VALUES (?, ?, ?, ?) ON CONFLICT (server_id) DO NOTHING`,
		int64(w.GuildID), int64(w.ChannelID), formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: create welcome: %w", err)
	}
	return insertedOrExists(res)
}

func (s *Store) UpdateWelcome(ctx context.Context, w *welcome.Settings) error {
	w.Stamp()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO welcome (server_id, channel_id, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (server_id) DO UPDATE SET
    channel_id = excluded.channel_id,
    updated_at = excluded.updated_at`,
		int64(w.GuildID), int64(w.ChannelID), formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: update welcome: %w", err)
	}
	return nil
}

func (s *Store) DeleteWelcome(ctx context.Context, guildID uint64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM welcome WHERE server_id = ?`, int64(guildID))
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: delete welcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: delete welcome: %w", err)
	}
	if n == 0 {
		return prometheus.ErrWelcomeNotFound
	}
	return nil
}

// ==================== Helpers ====================

func insertedOrExists(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return prometheus.ErrAlreadyExists
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
