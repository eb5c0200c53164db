// Package sqlite implements the diary persistence gateway on an SQLite file
// using sqlx, the pure-Go modernc driver, and embedded migrations.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"kcal_tracker_bot/internal/logging"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open connects to the database file at path, enables foreign keys, and
// applies pending migrations.
func Open(path string, logger *logrus.Entry) (*sqlx.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	db, err := sqlx.Connect(driverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps the
	// per-connection foreign_keys pragma in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	applied, err := applyMigrations(db.DB)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("close sqlite after migration failure")
		}
		return nil, err
	}

	logger.WithFields(logging.Fields{
		"event":              "sqlite_open",
		"path":               path,
		"migrations_applied": applied,
	}).Info("sqlite database ready")

	return db, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(" +
		fmt.Sprint((5 * time.Second).Milliseconds()) + ")"
}

// applyMigrations runs the embedded migrations and reports whether any were
// applied.
func applyMigrations(db *sql.DB) (bool, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return false, fmt.Errorf("open migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return false, fmt.Errorf("open migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return false, fmt.Errorf("init migrations: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("apply migrations: %w", err)
	}

	return true, nil
}
