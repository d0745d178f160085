// Package store persists classification results in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrInvalidPath is returned for an empty database path
var ErrInvalidPath = errors.New("database path is required")

// Store is the classification history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// DefaultPath returns <home>/.fiscalia/history.db
func DefaultPath(home string) string {
	return filepath.Join(home, ".fiscalia", "history.db")
}

// Open opens (creating if needed) the database at dbPath and applies
// pending migrations
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, ErrInvalidPath
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers from concurrent batch workers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
