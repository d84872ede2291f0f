package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalVersion is the user_version written after migrations.
// Version 1 indexes dispatches by action type.
const journalVersion = 1

// Store is a run journal backed by one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating the file and its tables when
// missing and migrating an older journal forward. Reopening a current
// journal changes nothing.
//
// Writes go through a single connection in WAL mode; foreign keys tie
// every dispatch to its run.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal %s: %w", path, err)
	}

	// One connection: a run is written in a single transaction and the
	// CLI never writes concurrently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the journal. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the handle for queries the Store does not cover.
func (s *Store) DB() *sql.DB {
	return s.db
}

var journalPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

func configure(db *sql.DB) error {
	for _, pragma := range journalPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("configure journal: %q: %w", pragma, err)
		}
	}
	return nil
}

// createTables runs schema.sql, which only uses IF NOT EXISTS.
func createTables(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create journal tables: %w", err)
	}
	return nil
}

// migrate brings a journal from its stored user_version up to
// journalVersion.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	if version < 1 {
		if err := indexActionTypes(db); err != nil {
			return err
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", journalVersion)); err != nil {
		return fmt.Errorf("write journal version: %w", err)
	}
	return nil
}

// indexActionTypes backs DispatchesByType, used by `trace --type`.
func indexActionTypes(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_dispatches_action_type
		ON dispatches(action_type, run_id, seq)
	`)
	if err != nil {
		return fmt.Errorf("index dispatches by action type: %w", err)
	}
	return nil
}

// checkPragma reports whether pragma name currently reads as want.
func (s *Store) checkPragma(name, want string) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("read pragma %s: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("pragma %s = %q, want %q", name, got, want)
	}
	return nil
}
