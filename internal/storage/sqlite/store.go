// Package sqlite implements the auth and trip-access persistence contracts
// over SQLite.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tripfolio/tripfolio/internal/platform/storage/sqlitemigrate"
	"github.com/tripfolio/tripfolio/internal/storage"
	"github.com/tripfolio/tripfolio/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements auth and trip-access persistence over SQLite.
//
// A single SQLite file backs the whole core so the bootstrap claim, invite
// redemption, and credential counters share one transaction boundary.
type Store struct {
	sqlDB *sql.DB
}

// DB returns the raw database handle for callers that extend the schema.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens a SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite permits one writer; a single pooled connection keeps write
	// transactions queued instead of failing busy.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// isUniqueViolation detects a SQLite unique or primary key conflict on the
// given qualified column.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "UNIQUE constraint failed") && strings.Contains(message, column)
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.CredentialStore = (*Store)(nil)
var _ storage.CeremonyStore = (*Store)(nil)
var _ storage.TripStore = (*Store)(nil)
var _ storage.GrantStore = (*Store)(nil)
var _ storage.InviteStore = (*Store)(nil)
