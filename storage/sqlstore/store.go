// Package sqlstore persists ephemeral tokens, sessions, one-time passwords
// and exchange attempts through sqlx. Postgres (lib/pq) and SQLite
// (modernc.org/sqlite) are supported.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is a handle on the exchange tables
type Store struct {
	db *sqlx.DB
}

// Open connects with driver and dsn and creates the tables when missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// an in-memory database exists once per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and creates the tables when missing.
func New(ctx context.Context, db *sqlx.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) initSchema(ctx context.Context) error {
	tables := []struct {
		name string
		ddl  string
	}{
		{"ephemeral_tokens", `
			CREATE TABLE IF NOT EXISTS ephemeral_tokens (
				token                  TEXT PRIMARY KEY,
				kind                   TEXT NOT NULL,
				associated_account_id  TEXT NOT NULL,
				expires_at             BIGINT NOT NULL,
				restrictions           TEXT NOT NULL,
				additional_information TEXT NOT NULL
			)`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				token      TEXT PRIMARY KEY,
				account_id TEXT NOT NULL,
				domain     TEXT NOT NULL,
				created_at BIGINT NOT NULL,
				expires_at BIGINT NOT NULL,
				data       TEXT NOT NULL
			)`},
		{"one_time_passwords", `
			CREATE TABLE IF NOT EXISTS one_time_passwords (
				id         TEXT PRIMARY KEY,
				account_id TEXT NOT NULL,
				value      TEXT NOT NULL,
				expires_at BIGINT NOT NULL,
				attempts   INTEGER NOT NULL DEFAULT 0
			)`},
		{"exchange_attempts", `
			CREATE TABLE IF NOT EXISTS exchange_attempts (
				id                  TEXT PRIMARY KEY,
				entity_id           TEXT NOT NULL,
				exchange_from       TEXT NOT NULL,
				exchange_to         TEXT NOT NULL,
				successful          BOOLEAN NOT NULL,
				device_id           TEXT NOT NULL,
				client_id           TEXT NOT NULL,
				source_ip           TEXT NOT NULL,
				user_agent          TEXT NOT NULL,
				tracking_session_id TEXT NOT NULL,
				created_at          BIGINT NOT NULL
			)`},
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to init '%s' table schema: %w", t.name, err)
		}
	}
	return nil
}

// exec runs a statement written with ? placeholders
func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
