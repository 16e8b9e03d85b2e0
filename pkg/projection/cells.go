package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"hive/pkg/protocol"
)

// Cells projects the task forest: epics and their subtask cells.
type Cells struct{}

// Name implements eventlog.Projector.
func (Cells) Name() string { return "cells" }

// Reset implements eventlog.Projector.
func (Cells) Reset(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cells`); err != nil {
		return &protocol.StorageError{Op: "reset cells", Err: err}
	}
	return nil
}

// Apply implements eventlog.Projector.
func (Cells) Apply(ctx context.Context, tx *sql.Tx, e protocol.Event) error {
	switch e.Type {
	case protocol.EventCellCreated:
		var p protocol.CellCreatedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode cell.created", Err: err}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cells (id, project_key, title, description, status, parent, created_at, closed_at)
			VALUES (?, ?, ?, ?, 'open', ?, ?, NULL)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, e.ProjectKey, p.Title, p.Description, p.Parent, e.TS)
		if err != nil {
			return &protocol.StorageError{Op: "project cell.created", Err: err}
		}
		return nil

	case protocol.EventCellUpdated:
		var p protocol.CellUpdatedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode cell.updated", Err: err}
		}
		// Empty payload fields keep the prior value. Moving to closed
		// stamps closed_at (if not already stamped); moving to any
		// other status clears it.
		_, err := tx.ExecContext(ctx, `
			UPDATE cells SET
			    status = CASE WHEN ? != '' THEN ? ELSE status END,
			    title = CASE WHEN ? != '' THEN ? ELSE title END,
			    description = CASE WHEN ? != '' THEN ? ELSE description END,
			    closed_at = CASE
			        WHEN ? = 'closed' THEN COALESCE(closed_at, ?)
			        WHEN ? != '' THEN NULL
			        ELSE closed_at END
			WHERE id = ?`,
			p.Status, p.Status, p.Title, p.Title, p.Description, p.Description,
			p.Status, e.TS, p.Status, p.ID)
		if err != nil {
			return &protocol.StorageError{Op: "project cell.updated", Err: err}
		}
		return nil

	case protocol.EventCellClosed:
		var p protocol.CellClosedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode cell.closed", Err: err}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE cells SET status = 'closed', closed_at = ? WHERE id = ?`,
			e.TS, p.ID)
		if err != nil {
			return &protocol.StorageError{Op: "project cell.closed", Err: err}
		}
		return nil
	}
	return nil
}

// GetCell returns one cell by exact id.
func GetCell(ctx context.Context, q Querier, projectKey, id string) (protocol.Cell, error) {
	rows, err := q.QueryContext(ctx, cellSelect+` AND id = ?`, projectKey, id)
	if err != nil {
		return protocol.Cell{}, &protocol.StorageError{Op: "get cell", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return protocol.Cell{}, &protocol.StorageError{Op: "get cell", Err: err}
		}
		return protocol.Cell{}, &protocol.NotFoundError{Kind: "cell", Ref: id}
	}
	return scanCell(rows)
}

// CellsByPrefix returns every cell whose id, or any hyphen-separated
// segment of whose id, starts with the given prefix. This is the
// read-only query variant: ambiguity returns all matches rather than
// erroring.
func CellsByPrefix(ctx context.Context, q Querier, projectKey, prefix string) ([]protocol.Cell, error) {
	rows, err := q.QueryContext(ctx,
		cellSelect+` AND (id LIKE ? OR id LIKE ?) ORDER BY created_at, id`,
		projectKey, prefix+"%", "%-"+prefix+"%")
	if err != nil {
		return nil, &protocol.StorageError{Op: "cells by prefix", Err: err}
	}
	defer rows.Close()

	var cells []protocol.Cell
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "iterate cells", Err: err}
	}
	return cells, nil
}

// ResolveCell resolves a full id or unambiguous prefix to exactly one
// cell. Zero matches yield NotFoundError; multiple matches yield
// AmbiguousReferenceError listing every hit.
func ResolveCell(ctx context.Context, q Querier, projectKey, ref string) (protocol.Cell, error) {
	// Exact id wins even if it happens to prefix other ids.
	if c, err := GetCell(ctx, q, projectKey, ref); err == nil {
		return c, nil
	}

	matches, err := CellsByPrefix(ctx, q, projectKey, ref)
	if err != nil {
		return protocol.Cell{}, err
	}
	switch len(matches) {
	case 0:
		return protocol.Cell{}, &protocol.NotFoundError{Kind: "cell", Ref: ref}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, c := range matches {
			ids[i] = c.ID
		}
		return protocol.Cell{}, &protocol.AmbiguousReferenceError{Kind: "cell", Ref: ref, Matches: ids}
	}
}

// ListCells returns cells filtered by optional status, newest first.
func ListCells(ctx context.Context, q Querier, projectKey string, status protocol.CellStatus) ([]protocol.Cell, error) {
	query := cellSelect
	args := []any{projectKey}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &protocol.StorageError{Op: "list cells", Err: err}
	}
	defer rows.Close()

	var cells []protocol.Cell
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "iterate cells", Err: err}
	}
	return cells, nil
}

// OpenChildren returns the ids of non-closed children of an epic.
func OpenChildren(ctx context.Context, q Querier, projectKey, parentID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id FROM cells
		WHERE project_key = ? AND parent = ? AND status != 'closed'
		ORDER BY id`, projectKey, parentID)
	if err != nil {
		return nil, &protocol.StorageError{Op: "open children", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &protocol.StorageError{Op: "scan child", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "iterate children", Err: err}
	}
	return ids, nil
}

const cellSelect = `
	SELECT id, title, description, status, parent, created_at, closed_at
	FROM cells WHERE project_key = ?`

func scanCell(rows *sql.Rows) (protocol.Cell, error) {
	var c protocol.Cell
	var created int64
	var closed sql.NullInt64
	if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Status, &c.Parent, &created, &closed); err != nil {
		return protocol.Cell{}, &protocol.StorageError{Op: "scan cell", Err: err}
	}
	c.CreatedAt = time.UnixMilli(created)
	if closed.Valid {
		t := time.UnixMilli(closed.Int64)
		c.ClosedAt = &t
	}
	return c, nil
}
