package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"hive/pkg/protocol"
)

// Reservations projects the current reservation per file path. The
// table keeps one row per path holding the latest claim; history
// stays in the event log. Expiry is never swept — readers evaluate it
// against the clock.
type Reservations struct{}

// Name implements eventlog.Projector.
func (Reservations) Name() string { return "reservations" }

// Reset implements eventlog.Projector.
func (Reservations) Reset(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations`); err != nil {
		return &protocol.StorageError{Op: "reset reservations", Err: err}
	}
	return nil
}

// Apply implements eventlog.Projector.
func (Reservations) Apply(ctx context.Context, tx *sql.Tx, e protocol.Event) error {
	switch e.Type {
	case protocol.EventFileReserved:
		var p protocol.FileReservedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode file.reserved", Err: err}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (project_key, file_path, holder, acquired_at, expires_at, released_at)
			VALUES (?, ?, ?, ?, ?, NULL)
			ON CONFLICT (project_key, file_path)
			DO UPDATE SET holder = excluded.holder,
			              acquired_at = excluded.acquired_at,
			              expires_at = excluded.expires_at,
			              released_at = NULL`,
			e.ProjectKey, p.Path, p.Agent, e.TS, p.ExpiresAt)
		if err != nil {
			return &protocol.StorageError{Op: "project file.reserved", Err: err}
		}
		return nil

	case protocol.EventFileReleased:
		var p protocol.FileReleasedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode file.released", Err: err}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE reservations SET released_at = ?
			WHERE project_key = ? AND file_path = ? AND released_at IS NULL`,
			e.TS, e.ProjectKey, p.Path)
		if err != nil {
			return &protocol.StorageError{Op: "project file.released", Err: err}
		}
		return nil
	}
	return nil
}

// LookupReservation returns the latest claim on a path, whether or
// not it is still active. The second return is false when the path
// has never been reserved. Runs against a Querier so the reservation
// manager can call it inside its append transaction.
func LookupReservation(ctx context.Context, q Querier, projectKey, path string) (protocol.Reservation, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT file_path, holder, acquired_at, expires_at, released_at
		FROM reservations WHERE project_key = ? AND file_path = ?`, projectKey, path)

	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return protocol.Reservation{}, false, nil
	}
	if err != nil {
		return protocol.Reservation{}, false, &protocol.StorageError{Op: "lookup reservation", Err: err}
	}
	return r, true, nil
}

// ActiveReservations returns every reservation still active at now,
// ordered by path.
func ActiveReservations(ctx context.Context, q Querier, projectKey string, now time.Time) ([]protocol.Reservation, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT file_path, holder, acquired_at, expires_at, released_at
		FROM reservations
		WHERE project_key = ? AND released_at IS NULL AND expires_at > ?
		ORDER BY file_path`, projectKey, now.UnixMilli())
	if err != nil {
		return nil, &protocol.StorageError{Op: "list reservations", Err: err}
	}
	defer rows.Close()

	var out []protocol.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, &protocol.StorageError{Op: "scan reservation", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "iterate reservations", Err: err}
	}
	return out, nil
}

// rowScanner lets scanReservation serve both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (protocol.Reservation, error) {
	var r protocol.Reservation
	var acquired, expires int64
	var released sql.NullInt64
	if err := row.Scan(&r.FilePath, &r.Holder, &acquired, &expires, &released); err != nil {
		return protocol.Reservation{}, err
	}
	r.AcquiredAt = time.UnixMilli(acquired)
	r.ExpiresAt = time.UnixMilli(expires)
	if released.Valid {
		t := time.UnixMilli(released.Int64)
		r.ReleasedAt = &t
	}
	return r, nil
}
