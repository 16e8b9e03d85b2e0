package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hive/pkg/protocol"
)

func TestUpsertEmptyStoreAdds(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{})

	res, err := m.Upsert(context.Background(), "the deploy pipeline needs a manual approval step", UpsertOpts{})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if res.Operation != OpAdd {
		t.Fatalf("operation %s, want ADD", res.Operation)
	}
	if res.ID == "" {
		t.Fatal("ADD returned no id")
	}
}

func TestUpsertNearDuplicateIsNoop(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{})
	ctx := context.Background()

	first, err := m.Upsert(ctx, "session tokens expire after sixty minutes of inactivity", UpsertOpts{})
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	res, err := m.Upsert(ctx, "session tokens expire after sixty minutes of inactivity", UpsertOpts{})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if res.Operation != OpNoop {
		t.Fatalf("operation %s, want NOOP", res.Operation)
	}
	if res.ID != first.ID {
		t.Fatalf("NOOP names %s, want the original %s", res.ID, first.ID)
	}
	if n, _ := m.Count(ctx, ""); n != 1 {
		t.Fatalf("duplicate created a record: count %d", n)
	}
}

func TestUpsertContradictionUpdatesInPlace(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{})
	ctx := context.Background()

	first, err := m.Upsert(ctx, "the session token ttl is sixty minutes", UpsertOpts{})
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	res, err := m.Upsert(ctx, "the session token ttl is actually five minutes", UpsertOpts{})
	if err != nil {
		t.Fatalf("correcting Upsert: %v", err)
	}
	if res.Operation != OpUpdate {
		t.Fatalf("operation %s (%s), want UPDATE", res.Operation, res.Reason)
	}
	if res.ID != first.ID {
		t.Fatalf("update targeted %s, want %s", res.ID, first.ID)
	}

	got, err := m.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(got.Content, "five minutes") {
		t.Fatalf("content not replaced: %q", got.Content)
	}
	if got.Confidence != 1.0 {
		t.Fatalf("confidence %f after update, want 1.0", got.Confidence)
	}
	if n, _ := m.Count(ctx, ""); n != 1 {
		t.Fatalf("update created a record: count %d", n)
	}
}

func TestUpsertRetractionDeletes(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{})
	ctx := context.Background()

	first, err := m.Upsert(ctx, "the staging environment mirrors production traffic", UpsertOpts{})
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	res, err := m.Upsert(ctx, "the staging environment mirrors production traffic is obsolete, staging was removed", UpsertOpts{})
	if err != nil {
		t.Fatalf("retracting Upsert: %v", err)
	}
	if res.Operation != OpDelete {
		t.Fatalf("operation %s (%s), want DELETE", res.Operation, res.Reason)
	}
	if res.ID != first.ID {
		t.Fatalf("delete targeted %s, want %s", res.ID, first.ID)
	}
	if _, err := m.Get(ctx, first.ID); !errors.Is(err, protocol.ErrNotFound) {
		t.Fatalf("record survives retraction: %v", err)
	}
}

func TestUpsertDistinctContentAdds(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{})
	ctx := context.Background()

	if _, err := m.Upsert(ctx, "sqlite uses write ahead logging", UpsertOpts{}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	res, err := m.Upsert(ctx, "kafka partitions are ordered per key", UpsertOpts{})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if res.Operation != OpAdd {
		t.Fatalf("operation %s (%s), want ADD", res.Operation, res.Reason)
	}
	if n, _ := m.Count(ctx, ""); n != 2 {
		t.Fatalf("count %d, want 2", n)
	}
}

func TestUpsertReasonNamesCandidate(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{})
	ctx := context.Background()

	first, err := m.Upsert(ctx, "session tokens expire after sixty minutes of inactivity", UpsertOpts{})
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	res, err := m.Upsert(ctx, "session tokens expire after sixty minutes of inactivity", UpsertOpts{})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if !strings.Contains(res.Reason, first.ID) {
		t.Fatalf("reason %q does not cite the candidate id", res.Reason)
	}
}

func TestUpsertValidation(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{})

	if _, err := m.Upsert(context.Background(), "   ", UpsertOpts{}); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

// rigged always answers with a fixed decision, standing in for a
// model-backed classifier.
type rigged struct {
	decision Decision
}

func (r rigged) Classify(context.Context, string, []ScoredMemory) (Decision, error) {
	return r.decision, nil
}

func TestUpsertPluggableClassifier(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{Classifier: rigged{decision: Decision{Op: OpNoop, Reason: "rigged"}}})
	ctx := context.Background()

	if _, err := m.Insert(ctx, InsertParams{Content: "anchor record for retrieval"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	res, err := m.Upsert(ctx, "anchor record for retrieval purposes", UpsertOpts{})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if res.Operation != OpNoop || res.Reason != "rigged" {
		t.Fatalf("custom classifier ignored: %+v", res)
	}
}

func TestUpsertRejectsTargetlessUpdate(t *testing.T) {
	t.Parallel()
	m, _ := newTestStore(t, Options{Classifier: rigged{decision: Decision{Op: OpUpdate}}})
	ctx := context.Background()

	if _, err := m.Insert(ctx, InsertParams{Content: "anchor record for retrieval"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, err := m.Upsert(ctx, "anchor record for retrieval purposes", UpsertOpts{})
	if !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestHeuristicClassifierChecksDeleteCuesFirst(t *testing.T) {
	t.Parallel()

	// Content carrying both a retraction cue and a correction cue must
	// delete, not rewrite.
	candidates := []ScoredMemory{{
		Memory: protocol.Memory{
			ID:      "cand-1",
			Content: "the staging environment mirrors production traffic",
		},
	}}
	d, err := HeuristicClassifier{}.Classify(context.Background(),
		"actually the staging environment mirrors production traffic note is obsolete", candidates)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if d.Op != OpDelete {
		t.Fatalf("op %s, want DELETE when both cues present", d.Op)
	}
	if d.TargetID != "cand-1" {
		t.Fatalf("target %s, want cand-1", d.TargetID)
	}
}
