package store_test

import (
	"context"
	"errors"
	"testing"

	"hive/pkg/protocol"
	"hive/pkg/store"
)

func newMemStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrateFreshStore(t *testing.T) {
	t.Parallel()
	s := newMemStore(t)

	n, err := store.Migrate(context.Background(), s)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if want := len(store.Migrations()); n != want {
		t.Fatalf("applied %d migrations, want %d", n, want)
	}

	// Every projected table must exist afterwards.
	for _, table := range []string{"events", "agents", "messages", "reservations", "cells", "memories"} {
		var name string
		err := s.DB.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()
	s := newMemStore(t)
	ctx := context.Background()

	if _, err := store.Migrate(ctx, s); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	n, err := store.Migrate(ctx, s)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if n != 0 {
		t.Fatalf("second Migrate applied %d migrations, want 0", n)
	}
}

func TestApplyPendingRejectsUnsortedList(t *testing.T) {
	t.Parallel()
	s := newMemStore(t)
	ctx := context.Background()

	ledger, err := store.NewLedger(ctx, s)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	bad := []store.Migration{
		{Version: 2, Name: "second", Up: `CREATE TABLE b (id INTEGER)`},
		{Version: 1, Name: "first", Up: `CREATE TABLE a (id INTEGER)`},
	}
	_, err = ledger.ApplyPending(ctx, bad)
	if !errors.Is(err, protocol.ErrMigration) {
		t.Fatalf("unsorted list: got %v, want migration error", err)
	}
}

func TestApplyPendingRejectsVersionGap(t *testing.T) {
	t.Parallel()
	s := newMemStore(t)
	ctx := context.Background()

	ledger, err := store.NewLedger(ctx, s)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	gapped := []store.Migration{
		{Version: 2, Name: "skips-one", Up: `CREATE TABLE b (id INTEGER)`},
	}
	_, err = ledger.ApplyPending(ctx, gapped)
	if !errors.Is(err, protocol.ErrMigration) {
		t.Fatalf("gapped list: got %v, want migration error", err)
	}

	v, err := ledger.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if v != 0 {
		t.Fatalf("failed migration recorded version %d, want 0", v)
	}
}

func TestFailedMigrationIsNotRecorded(t *testing.T) {
	t.Parallel()
	s := newMemStore(t)
	ctx := context.Background()

	ledger, err := store.NewLedger(ctx, s)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	broken := []store.Migration{
		{Version: 1, Name: "broken", Up: `CREATE SYNTAX ERROR`},
	}
	if _, err := ledger.ApplyPending(ctx, broken); err == nil {
		t.Fatal("broken migration applied without error")
	}

	v, err := ledger.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if v != 0 {
		t.Fatalf("broken migration recorded version %d, want 0", v)
	}

	// The store recovers: a corrected script under the same version
	// applies cleanly.
	fixed := []store.Migration{
		{Version: 1, Name: "fixed", Up: `CREATE TABLE a (id INTEGER)`},
	}
	n, err := ledger.ApplyPending(ctx, fixed)
	if err != nil {
		t.Fatalf("fixed migration: %v", err)
	}
	if n != 1 {
		t.Fatalf("fixed migration applied %d, want 1", n)
	}
}
