package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"hive/pkg/projection"
	"hive/pkg/protocol"
)

// snapshot is one consistent read of the dashboard's data.
type snapshot struct {
	agents       []protocol.Agent
	cells        []protocol.Cell
	reservations []protocol.Reservation
}

// fetchSnapshot opens the project database read-only, reads the three
// projections, and closes the handle. Opening per fetch keeps the
// dashboard from holding a connection against the writers; the CLI's
// busy timeout covers the brief overlap.
func fetchSnapshot(ctx context.Context, projectKey, dbPath string) (snapshot, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", url.PathEscape(dbPath))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return snapshot{}, fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		return snapshot{}, fmt.Errorf("set busy_timeout: %w", err)
	}

	now := time.Now()

	agents, err := projection.ListAgents(ctx, db, projectKey, now, protocol.DefaultGoneThreshold)
	if err != nil {
		return snapshot{}, err
	}
	cells, err := projection.ListCells(ctx, db, projectKey, "")
	if err != nil {
		return snapshot{}, err
	}
	reservations, err := projection.ActiveReservations(ctx, db, projectKey, now)
	if err != nil {
		return snapshot{}, err
	}

	return snapshot{agents: agents, cells: cells, reservations: reservations}, nil
}
