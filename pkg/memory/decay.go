package memory

import (
	"context"
	"math"
	"time"

	"hive/pkg/protocol"
)

// ApplyDecay lowers confidence on records whose last validation is
// older than the grace window: target = 0.5^((elapsed-window)/halfLife),
// applied as min(current, target). Recomputing from last_validated_at
// rather than compounding the stored value makes the pass idempotent:
// running it twice at the same instant changes nothing the second
// time. Returns the number of records whose confidence changed.
func (s *Store) ApplyDecay(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, confidence, last_validated_at FROM memories`)
	if err != nil {
		return 0, &protocol.StorageError{Op: "decay scan", Err: err}
	}

	type update struct {
		id         string
		confidence float64
	}
	var updates []update
	for rows.Next() {
		var id string
		var confidence float64
		var validated int64
		if err := rows.Scan(&id, &confidence, &validated); err != nil {
			rows.Close()
			return 0, &protocol.StorageError{Op: "decay scan", Err: err}
		}
		elapsed := now.Sub(time.UnixMilli(validated))
		if elapsed <= s.opts.Window {
			continue
		}
		target := math.Pow(0.5, float64(elapsed-s.opts.Window)/float64(s.opts.HalfLife))
		if target < confidence {
			updates = append(updates, update{id: id, confidence: target})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, &protocol.StorageError{Op: "decay rows", Err: err}
	}
	rows.Close()

	for _, u := range updates {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE memories SET confidence = ? WHERE id = ?`,
			u.confidence, u.id); err != nil {
			return 0, &protocol.StorageError{Op: "decay update", Err: err}
		}
	}
	return len(updates), nil
}

// Validate marks a record as re-confirmed: confidence back to 1.0 and
// the decay anchor moved to now.
func (s *Store) Validate(ctx context.Context, id string) error {
	now := s.opts.Clock().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET confidence = 1.0, last_validated_at = ? WHERE id = ?`,
		now, id)
	if err != nil {
		return &protocol.StorageError{Op: "memory validate", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &protocol.StorageError{Op: "memory validate", Err: err}
	}
	if n == 0 {
		return &protocol.NotFoundError{Kind: "memory", Ref: id}
	}
	return nil
}
