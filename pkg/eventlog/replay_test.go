package eventlog_test

import (
	"context"
	"testing"

	"hive/pkg/protocol"
)

func TestRebuildRefoldsFullLog(t *testing.T) {
	t.Parallel()
	log := newTestLog(t, tally{})
	ctx := context.Background()

	if err := seedTally(ctx, log); err != nil {
		t.Fatalf("seed tally: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := log.Append(ctx, "test.ping", nil); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if err := log.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if got := tallyCount(t, log); got != 3 {
		t.Fatalf("tally has %d rows after rebuild, want 3", got)
	}
}

func TestRebuildPicksUpForeignWrites(t *testing.T) {
	t.Parallel()
	log := newTestLog(t, tally{})
	ctx := context.Background()

	if err := seedTally(ctx, log); err != nil {
		t.Fatalf("seed tally: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := log.Append(ctx, "test.ping", nil); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// An event written by another process's log instance: present in
	// the events table but never folded through this instance.
	_, err := log.Store().DB.ExecContext(ctx,
		`INSERT INTO events (project_key, seq, type, ts, payload) VALUES ('p-test', 3, 'test.ping', 0, '{}')`)
	if err != nil {
		t.Fatalf("insert foreign event: %v", err)
	}

	if err := log.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if got := tallyCount(t, log); got != 3 {
		t.Fatalf("tally has %d rows after rebuild, want 3", got)
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	t.Parallel()
	log := newTestLog(t, tally{})
	ctx := context.Background()

	if err := seedTally(ctx, log); err != nil {
		t.Fatalf("seed tally: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := log.Append(ctx, "test.ping", nil); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	read := func() []int64 {
		var seqs []int64
		if err := log.ReadFrom(ctx, 1, func(e protocol.Event) error {
			seqs = append(seqs, e.Seq)
			return nil
		}); err != nil {
			t.Fatalf("ReadFrom: %v", err)
		}
		return seqs
	}

	before := read()
	if err := log.Rebuild(ctx); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	if err := log.Rebuild(ctx); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	after := read()

	if len(before) != len(after) {
		t.Fatalf("log length changed across rebuilds: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("event %d changed across rebuilds", i)
		}
	}
	if got := tallyCount(t, log); got != 4 {
		t.Fatalf("tally has %d rows, want 4", got)
	}
}
