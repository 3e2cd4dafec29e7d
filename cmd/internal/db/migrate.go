// Package db owns schema migrations for the Postgres store. Migration
// files are embedded so the binary carries its own schema history.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies all pending migrations against databaseURL. It is a
// no-op when the schema is already current.
func Migrate(log *slog.Logger, databaseURL string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, pgxURL(databaseURL))
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn("db.migrate.close", "err", srcErr)
		}
		if dbErr != nil {
			log.Warn("db.migrate.close", "err", dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("db.migrate.current")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.Info("db.migrate.applied")
	return nil
}

// pgxURL rewrites a postgres:// URL so golang-migrate routes it through
// the pgx/v5 database driver.
func pgxURL(u string) string {
	switch {
	case strings.HasPrefix(u, "postgres://"):
		return "pgx5://" + strings.TrimPrefix(u, "postgres://")
	case strings.HasPrefix(u, "postgresql://"):
		return "pgx5://" + strings.TrimPrefix(u, "postgresql://")
	default:
		return u
	}
}
