// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code, so no C compiler is needed.
//
// TIMESTAMPS:
// created_at / updated_at are stored as INTEGER unix milliseconds. That keeps
// scanning independent of the driver's DATETIME parsing and sorts correctly.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements ProfileRepository and
// AccountRepository.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/portal.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
//
// ONE CONNECTION:
// SQLite serialises writers anyway, and every ":memory:" connection would be a
// separate empty database. Pinning the pool to one connection keeps both file
// and in-memory databases consistent.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// Wait for a competing writer instead of failing with SQLITE_BUSY at once.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database still answers. Used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent, and later columns are added with
// addColumnIfNotExists, so migrate is safe on every start.
func (db *DB) migrate() error {
	// accounts: one row per sign-in identity. email is stored lowercased.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL,
			CONSTRAINT accounts_email_key UNIQUE (email),
			CONSTRAINT accounts_github_id_key UNIQUE (github_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	// profiles: keyed by the account id. handle is NULL until the member picks
	// one; UNIQUE ignores NULLs so any number of profiles can be handle-less.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id               TEXT PRIMARY KEY,
			handle           TEXT,
			first_name       TEXT NOT NULL DEFAULT '',
			last_name        TEXT NOT NULL DEFAULT '',
			avatar_uri       TEXT NOT NULL DEFAULT '',
			status_text      TEXT NOT NULL DEFAULT '',
			social_instagram TEXT NOT NULL DEFAULT '',
			social_github    TEXT NOT NULL DEFAULT '',
			social_telegram  TEXT NOT NULL DEFAULT '',
			social_steam     TEXT NOT NULL DEFAULT '',
			social_whatsapp  TEXT NOT NULL DEFAULT '',
			course           TEXT NOT NULL DEFAULT '',
			neighborhood     TEXT NOT NULL DEFAULT '',
			gender           TEXT NOT NULL DEFAULT '',
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL,
			CONSTRAINT profiles_handle_key UNIQUE (handle)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	// orientation was added after the first deploy.
	if err := db.addColumnIfNotExists("profiles", "orientation",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding orientation to profiles: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
