package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"hive/pkg/protocol"
)

func TestDecayWithinWindow(t *testing.T) {
	t.Parallel()
	m, now := newTestStore(t, Options{Window: 10 * 24 * time.Hour, HalfLife: 10 * 24 * time.Hour})
	ctx := context.Background()

	id, err := m.Insert(ctx, InsertParams{Content: "fresh observation"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	changed, err := m.ApplyDecay(ctx, now.Add(9*24*time.Hour))
	if err != nil {
		t.Fatalf("ApplyDecay: %v", err)
	}
	if changed != 0 {
		t.Fatalf("%d records decayed inside the grace window", changed)
	}
	got, err := m.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Confidence != 1.0 {
		t.Fatalf("confidence %f, want 1.0", got.Confidence)
	}
}

func TestDecayPastWindow(t *testing.T) {
	t.Parallel()
	window := 10 * 24 * time.Hour
	halfLife := 10 * 24 * time.Hour
	m, now := newTestStore(t, Options{Window: window, HalfLife: halfLife})
	ctx := context.Background()

	id, err := m.Insert(ctx, InsertParams{Content: "aging observation"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// One half-life past the window: confidence should land at 0.5.
	at := now.Add(window + halfLife)
	changed, err := m.ApplyDecay(ctx, at)
	if err != nil {
		t.Fatalf("ApplyDecay: %v", err)
	}
	if changed != 1 {
		t.Fatalf("%d records decayed, want 1", changed)
	}
	got, err := m.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if math.Abs(got.Confidence-0.5) > 1e-6 {
		t.Fatalf("confidence %f one half-life past the window, want 0.5", got.Confidence)
	}
}

func TestDecayIsIdempotent(t *testing.T) {
	t.Parallel()
	window := 10 * 24 * time.Hour
	m, now := newTestStore(t, Options{Window: window, HalfLife: window})
	ctx := context.Background()

	if _, err := m.Insert(ctx, InsertParams{Content: "aging observation"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	at := now.Add(window + 5*24*time.Hour)
	if _, err := m.ApplyDecay(ctx, at); err != nil {
		t.Fatalf("first ApplyDecay: %v", err)
	}
	changed, err := m.ApplyDecay(ctx, at)
	if err != nil {
		t.Fatalf("second ApplyDecay: %v", err)
	}
	if changed != 0 {
		t.Fatalf("second pass at the same instant changed %d records", changed)
	}
}

func TestDecayNeverRaisesConfidence(t *testing.T) {
	t.Parallel()
	window := 10 * 24 * time.Hour
	m, now := newTestStore(t, Options{Window: window, HalfLife: window})
	ctx := context.Background()

	id, err := m.Insert(ctx, InsertParams{Content: "manually discounted note"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// A record already below its computed target stays where it is.
	if _, err := m.db.ExecContext(ctx, `UPDATE memories SET confidence = 0.05 WHERE id = ?`, id); err != nil {
		t.Fatalf("discount record: %v", err)
	}

	changed, err := m.ApplyDecay(ctx, now.Add(window+24*time.Hour))
	if err != nil {
		t.Fatalf("ApplyDecay: %v", err)
	}
	if changed != 0 {
		t.Fatalf("decay touched a record already below target (%d changed)", changed)
	}
	got, err := m.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Confidence != 0.05 {
		t.Fatalf("confidence %f, want 0.05 untouched", got.Confidence)
	}
}

func TestValidateResetsDecay(t *testing.T) {
	t.Parallel()
	window := 10 * 24 * time.Hour
	m, now := newTestStore(t, Options{Window: window, HalfLife: window})
	ctx := context.Background()

	id, err := m.Insert(ctx, InsertParams{Content: "revalidated observation"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	at := now.Add(window + window)
	if _, err := m.ApplyDecay(ctx, at); err != nil {
		t.Fatalf("ApplyDecay: %v", err)
	}

	*now = at
	if err := m.Validate(ctx, id); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got, err := m.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Confidence != 1.0 {
		t.Fatalf("confidence %f after validate, want 1.0", got.Confidence)
	}
	if !got.LastValidatedAt.Equal(at) {
		t.Fatalf("anchor %v, want %v", got.LastValidatedAt, at)
	}

	// The moved anchor restarts the grace window.
	changed, err := m.ApplyDecay(ctx, at.Add(window-time.Hour))
	if err != nil {
		t.Fatalf("ApplyDecay after validate: %v", err)
	}
	if changed != 0 {
		t.Fatalf("validated record decayed inside its new window")
	}
}

func TestValidateUnknownID(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{})

	if err := m.Validate(context.Background(), "nope"); !errors.Is(err, protocol.ErrNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
}
