package eventlog

import (
	"context"
	"database/sql"

	"hive/pkg/protocol"
)

// Rebuild resets every projector and refolds the full event log from
// sequence 1 in one transaction. This is the recovery path: derived
// state is always reconstructible from the log, and a rebuild after a
// suspected inconsistency converges on the same state an incremental
// apply would have produced.
func (l *Log) Rebuild(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Materialize the log first; folding happens on the same
	// connection and SQLite dislikes a write statement racing an open
	// read cursor inside one transaction.
	var events []protocol.Event
	if err := l.readAll(ctx, &events); err != nil {
		return err
	}

	tx, err := l.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return &protocol.StorageError{Op: "begin rebuild tx", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range l.projectors {
		if err := p.Reset(ctx, tx); err != nil {
			return err
		}
	}

	for _, e := range events {
		for _, p := range l.projectors {
			if err := p.Apply(ctx, tx, e); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &protocol.StorageError{Op: "commit rebuild", Err: err}
	}
	return nil
}

// readAll loads the full ordered log for this project.
func (l *Log) readAll(ctx context.Context, out *[]protocol.Event) error {
	rows, err := l.store.DB.QueryContext(ctx,
		`SELECT seq, type, ts, payload FROM events
		 WHERE project_key = ? ORDER BY seq`, l.projectKey)
	if err != nil {
		return &protocol.StorageError{Op: "read events", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var e protocol.Event
		var payload string
		if err := rows.Scan(&e.Seq, &e.Type, &e.TS, &payload); err != nil {
			return &protocol.StorageError{Op: "scan event", Err: err}
		}
		e.ProjectKey = l.projectKey
		e.Payload = []byte(payload)
		*out = append(*out, e)
	}
	if err := rows.Err(); err != nil {
		return &protocol.StorageError{Op: "iterate events", Err: err}
	}
	return nil
}

// Length returns the current log length (highest assigned sequence).
func (l *Log) Length(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := l.store.DB.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM events WHERE project_key = ?`, l.projectKey).Scan(&max); err != nil {
		return 0, &protocol.StorageError{Op: "read log length", Err: err}
	}
	return max.Int64, nil
}
