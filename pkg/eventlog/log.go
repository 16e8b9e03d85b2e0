// Package eventlog implements hive's append-only coordination log.
// Appends assign a strictly increasing per-project sequence and run
// every registered projector inside the same transaction, so an event
// and its projection delta commit or roll back as one unit.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"hive/pkg/protocol"
	"hive/pkg/store"
)

// Clock supplies the current time. Injected so tests and the decay
// scheduler can drive time explicitly.
type Clock func() time.Time

// Projector folds events into a derived table. Apply must be a pure
// function of (prior table state, event) and must ignore event types
// it does not know. Reset clears the derived table for a rebuild.
type Projector interface {
	Name() string
	Reset(ctx context.Context, tx *sql.Tx) error
	Apply(ctx context.Context, tx *sql.Tx, e protocol.Event) error
}

// Log is the single write path for one project's coordination state.
// In-process writers serialize on a mutex; cross-process writers
// serialize on the SQLite write lock (txlock=immediate).
type Log struct {
	mu         sync.Mutex
	store      *store.Store
	projectKey string
	clock      Clock
	projectors []Projector
}

// New creates a Log over s for projectKey. A nil clock defaults to
// time.Now.
func New(s *store.Store, projectKey string, clock Clock, projectors ...Projector) *Log {
	if clock == nil {
		clock = time.Now
	}
	return &Log{store: s, projectKey: projectKey, clock: clock, projectors: projectors}
}

// ProjectKey returns the project identity this log writes under.
func (l *Log) ProjectKey() string { return l.projectKey }

// Store returns the underlying store handle for read queries.
func (l *Log) Store() *store.Store { return l.store }

// Append validates, assigns the next sequence, writes the event, and
// applies every projector — all in one transaction. On any error no
// event is recorded and no sequence is consumed.
func (l *Log) Append(ctx context.Context, typ string, payload any) (int64, error) {
	return l.AppendCheck(ctx, typ, payload, nil)
}

// AppendCheck is Append with a caller precondition evaluated inside
// the same transaction, before the event is written. This is the
// check-and-set primitive: the reservation manager's conflict check
// and the agent registry's uniqueness check both run here, atomically
// with the append they guard. A check error aborts the transaction
// and propagates unchanged.
func (l *Log) AppendCheck(ctx context.Context, typ string, payload any, check func(ctx context.Context, tx *sql.Tx) error) (int64, error) {
	if typ == "" {
		return 0, &protocol.ValidationError{Field: "event type", Reason: "empty"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, &protocol.StorageError{Op: "begin append tx", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if check != nil {
		if err := check(ctx, tx); err != nil {
			return 0, err
		}
	}

	// Marshal after the check: payloads may carry references the
	// check resolves (e.g. a cell prefix resolved to a full id).
	body := []byte("{}")
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return 0, &protocol.ValidationError{Field: "payload", Reason: err.Error()}
		}
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE project_key = ?`,
		l.projectKey).Scan(&seq); err != nil {
		return 0, &protocol.StorageError{Op: "assign sequence", Err: err}
	}

	e := protocol.Event{
		Seq:        seq,
		Type:       typ,
		ProjectKey: l.projectKey,
		TS:         l.clock().UnixMilli(),
		Payload:    body,
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (project_key, seq, type, ts, payload) VALUES (?, ?, ?, ?, ?)`,
		e.ProjectKey, e.Seq, e.Type, e.TS, string(e.Payload)); err != nil {
		return 0, &protocol.StorageError{Op: "insert event", Err: err}
	}

	for _, p := range l.projectors {
		if err := p.Apply(ctx, tx, e); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &protocol.StorageError{Op: "commit append", Err: err}
	}
	return seq, nil
}

// ReadFrom streams events with seq >= since in order. The scan is
// bounded by the log length at call time: events appended while the
// caller iterates are not included. fn returning an error stops the
// scan and propagates.
func (l *Log) ReadFrom(ctx context.Context, since int64, fn func(protocol.Event) error) error {
	var max sql.NullInt64
	if err := l.store.DB.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM events WHERE project_key = ?`, l.projectKey).Scan(&max); err != nil {
		return &protocol.StorageError{Op: "read log length", Err: err}
	}
	if !max.Valid || max.Int64 < since {
		return nil
	}

	rows, err := l.store.DB.QueryContext(ctx,
		`SELECT seq, type, ts, payload FROM events
		 WHERE project_key = ? AND seq >= ? AND seq <= ?
		 ORDER BY seq`,
		l.projectKey, since, max.Int64)
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
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &protocol.StorageError{Op: "iterate events", Err: err}
	}
	return nil
}
