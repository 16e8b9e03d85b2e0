package store

import (
	"context"
	"sync"
)

// Registry memoizes open store handles per project identity so that
// repeated lookups within one process share a connection. Ownership
// stays explicit: the registry constructs each handle once and
// CloseAll closes every handle it constructed. There is no implicit
// package-level store.
type Registry struct {
	mu     sync.Mutex
	home   string
	stores map[string]*Store
}

// NewRegistry creates a Registry rooted at the given hive home
// directory.
func NewRegistry(home string) *Registry {
	return &Registry{home: home, stores: make(map[string]*Store)}
}

// Get returns the migrated store for projectKey, opening it on first
// use.
func (r *Registry) Get(ctx context.Context, projectKey string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[projectKey]; ok {
		return s, nil
	}

	s, err := Open(DBPath(r.home, projectKey))
	if err != nil {
		return nil, err
	}
	if _, err := Migrate(ctx, s); err != nil {
		_ = s.Close()
		return nil, err
	}

	r.stores[projectKey] = s
	return s, nil
}

// CloseAll closes every handle the registry opened. The first error
// is returned; closing continues regardless.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for key, s := range r.stores {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.stores, key)
	}
	return first
}
