// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite — no CGo, no C
// toolchain, trivially cross-compiled. The database is a single file (or
// ":memory:" in tests).
//
// The uniqueness invariants the reconciler relies on live here as UNIQUE
// indexes: users.username, users.email, and the (provider, external_id)
// pair on social_accounts. A concurrent writer that loses the race gets a
// constraint violation, which we translate to apperror.ErrConflict so the
// service can retry its lookup instead of treating it as fatal.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/auth-backend/internal/apperror"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB owns the connection pool and hands out the per-table stores.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight — needed for
	// a web server with parallel requests.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Off by default in SQLite; the social_accounts → users cascade
	// depends on it.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user store backed by this database.
func (db *DB) Users() *UserStore {
	return &UserStore{conn: db.conn}
}

// SocialAccounts returns the social account store backed by this database.
func (db *DB) SocialAccounts() *SocialAccountStore {
	return &SocialAccountStore{conn: db.conn}
}

// Locations returns the GPS location store backed by this database.
func (db *DB) Locations() *LocationStore {
	return &LocationStore{conn: db.conn}
}

func (db *DB) migrate() error {
	// users.email is nullable so the UNIQUE index ignores accounts without
	// an email (SQLite treats NULLs as distinct).
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT UNIQUE,
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS social_accounts (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider    TEXT NOT NULL,
			external_id TEXT NOT NULL,
			raw_profile TEXT NOT NULL DEFAULT '{}',
			created_at  DATETIME NOT NULL,
			UNIQUE (provider, external_id)
		);
		CREATE INDEX IF NOT EXISTS idx_social_accounts_user_id ON social_accounts(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating social_accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS gps_locations (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			latitude    REAL NOT NULL,
			longitude   REAL NOT NULL,
			altitude    REAL NOT NULL DEFAULT 0,
			recorded_at DATETIME NOT NULL,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_gps_locations_user_id ON gps_locations(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating gps_locations table: %w", err)
	}

	return nil
}

// conflictError translates a driver uniqueness violation into the domain
// conflict error, extracting the column so handlers can key field errors.
// Returns nil if err is not a uniqueness violation.
func conflictError(err error) *apperror.AppError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return apperror.Conflict("username", "A user with that username already exists.")
	case strings.Contains(msg, "users.email"):
		return apperror.Conflict("email", "A user with that email already exists.")
	case strings.Contains(msg, "social_accounts"):
		return apperror.Conflict("", "This social account is already linked.")
	default:
		return apperror.Conflict("", msg)
	}
}
