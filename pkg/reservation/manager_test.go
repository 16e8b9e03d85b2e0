package reservation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hive/pkg/eventlog"
	"hive/pkg/projection"
	"hive/pkg/protocol"
	"hive/pkg/reservation"
	"hive/pkg/store"
)

// fixture drives the manager with an adjustable clock over a migrated
// in-memory store.
type fixture struct {
	mgr *reservation.Manager
	log *eventlog.Log
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := store.Migrate(context.Background(), s); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	f := &fixture{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.log = eventlog.New(s, "p-test", clock, projection.Projectors()...)
	f.mgr = reservation.NewManager(f.log, clock, 15*time.Minute)
	return f
}

func TestReserveThenConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-1", 0)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !r.ExpiresAt.Equal(f.now.Add(15 * time.Minute)) {
		t.Fatalf("expiry %v, want default TTL applied", r.ExpiresAt)
	}

	_, err = f.mgr.Reserve(ctx, "pkg/a.go", "drone-2", 0)
	var conflict *protocol.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second Reserve: got %v, want ConflictError", err)
	}
	if conflict.Holder != "drone-1" {
		t.Fatalf("conflict names holder %s, want drone-1", conflict.Holder)
	}
	if !conflict.ExpiresAt.Equal(r.ExpiresAt) {
		t.Fatalf("conflict expiry %v, want %v", conflict.ExpiresAt, r.ExpiresAt)
	}
}

func TestReserveRenewsForSameHolder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-1", 0); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	f.now = f.now.Add(10 * time.Minute)
	r, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-1", 0)
	if err != nil {
		t.Fatalf("renewal: %v", err)
	}
	if !r.ExpiresAt.Equal(f.now.Add(15 * time.Minute)) {
		t.Fatalf("renewal expiry %v, want extended from renewal time", r.ExpiresAt)
	}
}

func TestExpiredReservationIsReclaimable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-1", time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	f.now = f.now.Add(2 * time.Minute)
	r, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-2", 0)
	if err != nil {
		t.Fatalf("Reserve after expiry: %v", err)
	}
	if r.Holder != "drone-2" {
		t.Fatalf("holder %s, want drone-2", r.Holder)
	}
}

func TestReleaseByHolder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-1", 0); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := f.mgr.Release(ctx, "pkg/a.go", "drone-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if _, held, err := f.mgr.Holder(ctx, "pkg/a.go"); err != nil || held {
		t.Fatalf("path still held after release (held=%v err=%v)", held, err)
	}

	// Freed path is immediately reclaimable by anyone.
	if _, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-2", 0); err != nil {
		t.Fatalf("Reserve after release: %v", err)
	}
}

func TestReleaseFreePathIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.Release(ctx, "pkg/never-reserved.go", "drone-1"); err != nil {
		t.Fatalf("Release of free path: %v", err)
	}

	// No event is appended for a no-op release.
	n, err := f.log.Length(ctx)
	if err != nil {
		t.Fatalf("Length: %v", err)
	}
	if n != 0 {
		t.Fatalf("no-op release appended %d events, want 0", n)
	}
}

func TestReleaseByNonHolderFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-1", 0); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	err := f.mgr.Release(ctx, "pkg/a.go", "drone-2")
	var nh *protocol.NotHolderError
	if !errors.As(err, &nh) {
		t.Fatalf("got %v, want NotHolderError", err)
	}
	if nh.Holder != "drone-1" {
		t.Fatalf("error names holder %s, want drone-1", nh.Holder)
	}

	// The claim survives the failed release.
	r, held, err := f.mgr.Holder(ctx, "pkg/a.go")
	if err != nil || !held || r.Holder != "drone-1" {
		t.Fatalf("claim lost after failed release: held=%v holder=%s err=%v", held, r.Holder, err)
	}
}

func TestActiveListsOnlyLiveClaims(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Reserve(ctx, "pkg/a.go", "drone-1", time.Minute); err != nil {
		t.Fatalf("Reserve a: %v", err)
	}
	if _, err := f.mgr.Reserve(ctx, "pkg/b.go", "drone-2", time.Hour); err != nil {
		t.Fatalf("Reserve b: %v", err)
	}

	f.now = f.now.Add(5 * time.Minute)
	active, err := f.mgr.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active) != 1 || active[0].FilePath != "pkg/b.go" {
		t.Fatalf("active = %+v, want only pkg/b.go", active)
	}
}

func TestReserveValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Reserve(ctx, "", "drone-1", 0); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("empty path: got %v, want validation error", err)
	}
	if _, err := f.mgr.Reserve(ctx, "pkg/a.go", "", 0); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("empty agent: got %v, want validation error", err)
	}
}
