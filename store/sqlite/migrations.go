package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/toastnco/prometheus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "prometheus_schema_migrations"

// Migrate applies every pending up migration.
func (s *Store) Migrate(_ context.Context) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: open migrations: %w", err)
	}

	// The driver is not closed here: closing it would close s.db.
	drv, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("prometheus/sqlite: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("prometheus/sqlite: %w: %w", prometheus.ErrMigrationFailed, err)
	}
	return nil
}
