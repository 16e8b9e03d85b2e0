// Package store manages hive's embedded SQLite databases: opening
// handles with production-safe defaults, deriving project identities,
// memoizing handles per project, and applying schema migrations
// through a recorded ledger.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store is an open handle to one project database. Construct with
// Open (or through a Registry), pass by reference, close once.
type Store struct {
	DB   *sql.DB
	Path string
}

// Open opens (creating if needed) the SQLite database at path and
// enforces production-safe defaults: WAL journal mode and a 5-second
// busy timeout. Write transactions take the database write lock at
// BEGIN (txlock=immediate) so concurrent appenders from independent
// agent processes serialize instead of failing at commit. The
// connection is pinged before returning.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate", url.PathEscape(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys on %s: %w", path, err)
	}

	return &Store{DB: db, Path: path}, nil
}

// OpenMemory opens a private in-memory database. Used by tests and by
// replay verification, which folds the log into a throwaway store.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory sqlite: %w", err)
	}
	// Every pooled connection to :memory: would otherwise see its own
	// empty database.
	db.SetMaxOpenConns(1)
	return &Store{DB: db, Path: ":memory:"}, nil
}

// Close releases the database connection. Safe to call multiple times.
func (s *Store) Close() error {
	if s.DB != nil {
		err := s.DB.Close()
		s.DB = nil
		return err
	}
	return nil
}
