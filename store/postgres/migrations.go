package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/toastnco/prometheus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationsTable is the bookkeeping table golang-migrate writes to.
const MigrationsTable = "prometheus_schema_migrations"

// Migrate applies every pending up migration. A dirty schema is reported
// instead of being forced.
func (s *Store) Migrate(_ context.Context) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("prometheus/postgres: open migrations: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(s.pool)
	defer func() { _ = sqlDB.Close() }()

	drv, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		return fmt.Errorf("prometheus/postgres: migration driver: %w", err)
	}
	defer func() { _ = drv.Close() }()

	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		return fmt.Errorf("prometheus/postgres: migrate instance: %w", err)
	}

	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("prometheus/postgres: read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("prometheus/postgres: schema is dirty: %w", prometheus.ErrMigrationFailed)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("prometheus/postgres: %w: %w", prometheus.ErrMigrationFailed, err)
	}
	return nil
}
