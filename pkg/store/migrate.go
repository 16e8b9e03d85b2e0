package store

import (
	"context"
	"database/sql"
	"fmt"

	"hive/pkg/protocol"
)

// Migration is one schema step. Versions are monotonic integers; Up
// runs exactly once per database. Down is kept for operator use and
// is never run automatically.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Ledger tracks which schema versions a store has applied. The ledger
// records a version in the same transaction as the migration script,
// so a half-applied migration can never be recorded as done.
type Ledger struct {
	store *Store
}

// NewLedger creates a Ledger over s and ensures its bookkeeping table
// exists.
func NewLedger(ctx context.Context, s *Store) (*Ledger, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_versions (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
)`
	if _, err := s.DB.ExecContext(ctx, ddl); err != nil {
		return nil, &protocol.StorageError{Op: "create schema_versions", Err: err}
	}
	return &Ledger{store: s}, nil
}

// CurrentVersion returns the highest applied version, or 0 for a
// fresh store.
func (l *Ledger) CurrentVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	err := l.store.DB.QueryRowContext(ctx,
		`SELECT MAX(version) FROM schema_versions`).Scan(&v)
	if err != nil {
		return 0, &protocol.StorageError{Op: "read schema version", Err: err}
	}
	return int(v.Int64), nil
}

// ApplyPending applies every migration with a version above the
// current one, strictly in ascending order, and returns how many ran.
// Each migration's script and its ledger record commit atomically;
// concurrent agents serialize on the database write lock, so a second
// caller sees the recorded versions and applies nothing. A migration
// that errors mid-way is rolled back, not recorded, and stops the run
// with a MigrationError.
func (l *Ledger) ApplyPending(ctx context.Context, migrations []Migration) (int, error) {
	if err := checkOrder(migrations); err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		ran, err := l.applyOne(ctx, m)
		if err != nil {
			return applied, err
		}
		if ran {
			applied++
		}
	}
	return applied, nil
}

// applyOne runs a single migration if its version is not yet recorded.
// The version check, the script, and the ledger insert share one
// transaction so concurrent migrators cannot double-apply.
func (l *Ledger) applyOne(ctx context.Context, m Migration) (bool, error) {
	tx, err := l.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, &protocol.StorageError{Op: "begin migration tx", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var current sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(version) FROM schema_versions`).Scan(&current); err != nil {
		return false, &protocol.StorageError{Op: "read schema version", Err: err}
	}

	if int64(m.Version) <= current.Int64 {
		// Already applied (idempotent re-run). Verify it is actually
		// recorded rather than silently skipping a gap.
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.Version).Scan(&n); err != nil {
			return false, &protocol.StorageError{Op: "check schema version", Err: err}
		}
		if n == 0 {
			return false, &protocol.MigrationError{
				Version: m.Version,
				Err:     fmt.Errorf("version gap: %d missing below current %d", m.Version, current.Int64),
			}
		}
		return false, nil
	}

	if int64(m.Version) != current.Int64+1 {
		return false, &protocol.MigrationError{
			Version: m.Version,
			Err:     fmt.Errorf("out of order: current version is %d", current.Int64),
		}
	}

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return false, &protocol.MigrationError{Version: m.Version, Err: err}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_versions (version, name) VALUES (?, ?)`,
		m.Version, m.Name); err != nil {
		return false, &protocol.MigrationError{Version: m.Version, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return false, &protocol.MigrationError{Version: m.Version, Err: err}
	}
	return true, nil
}

// checkOrder rejects migration lists that are unsorted or carry
// duplicate versions before anything touches the store.
func checkOrder(migrations []Migration) error {
	prev := 0
	for _, m := range migrations {
		if m.Version <= prev {
			return &protocol.MigrationError{
				Version: m.Version,
				Err:     fmt.Errorf("migration list not strictly ascending after %d", prev),
			}
		}
		prev = m.Version
	}
	return nil
}

// Migrate is the startup bootstrap: it creates the ledger and applies
// the built-in migration set.
func Migrate(ctx context.Context, s *Store) (int, error) {
	ledger, err := NewLedger(ctx, s)
	if err != nil {
		return 0, err
	}
	return ledger.ApplyPending(ctx, Migrations())
}
