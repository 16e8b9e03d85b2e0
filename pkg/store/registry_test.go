package store_test

import (
	"context"
	"sync"
	"testing"

	"hive/pkg/store"
)

func TestRegistryMemoizesHandles(t *testing.T) {
	t.Parallel()
	r := store.NewRegistry(t.TempDir())
	ctx := context.Background()

	a, err := r.Get(ctx, "p-aaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := r.Get(ctx, "p-aaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if a != b {
		t.Fatal("same project key produced two handles")
	}

	other, err := r.Get(ctx, "p-bbbbbbbbbbbb")
	if err != nil {
		t.Fatalf("Get other project: %v", err)
	}
	if other == a {
		t.Fatal("distinct project keys share a handle")
	}

	if err := r.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
}

func TestRegistryMigratesOnFirstOpen(t *testing.T) {
	t.Parallel()
	r := store.NewRegistry(t.TempDir())
	ctx := context.Background()

	s, err := r.Get(ctx, "p-cccccccccccc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer r.CloseAll()

	ledger, err := store.NewLedger(ctx, s)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	v, err := ledger.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if v != len(store.Migrations()) {
		t.Fatalf("schema version %d after Get, want %d", v, len(store.Migrations()))
	}
}

func TestRegistryConcurrentGet(t *testing.T) {
	t.Parallel()
	r := store.NewRegistry(t.TempDir())
	ctx := context.Background()
	defer r.CloseAll()

	handles := make([]*store.Store, 8)
	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Get(ctx, "p-dddddddddddd")
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			handles[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(handles); i++ {
		if handles[i] != handles[0] {
			t.Fatal("concurrent Gets produced distinct handles")
		}
	}
}
