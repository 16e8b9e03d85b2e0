// Package projection maintains the derived tables — agents, messages,
// reservations, cells — by folding coordination events in order. Each
// projector's Apply is a pure function of prior table state and one
// event; unknown event types are ignored for forward compatibility.
// These tables are owned exclusively by this package: nothing else
// writes them, and all of them are reconstructible by replay.
package projection

import (
	"context"
	"database/sql"
	"encoding/json"

	"hive/pkg/eventlog"
)

// Querier is the read surface shared by *sql.DB and *sql.Tx. Lookup
// helpers take a Querier so the reservation manager can run its
// conflict check inside the append transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Projectors returns the full projector set in a stable order,
// suitable for wiring into eventlog.New.
func Projectors() []eventlog.Projector {
	return []eventlog.Projector{
		&Agents{},
		&Messages{},
		&Reservations{},
		&Cells{},
	}
}

// jsonList marshals a string slice for storage, never failing: a nil
// slice becomes "[]".
func jsonList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// listFromJSON parses a stored JSON array; malformed input yields nil.
func listFromJSON(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}
