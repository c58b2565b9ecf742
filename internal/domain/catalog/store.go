package catalog

import (
	"sort"
	"sync"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Store holds the current catalog snapshot. Replace swaps the whole set
// atomically; readers always see a consistent catalog and receive copies.
type Store struct {
	mu   sync.RWMutex
	apps map[string]types.Application
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{apps: make(map[string]types.Application)}
}

// Get returns the application by id.
func (s *Store) Get(id string) (types.Application, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	return app, ok
}

// List returns all applications ordered by display name, id breaking ties.
func (s *Store) List() []types.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(types.Application) bool { return true })
}

// Enabled returns the launchable subset ordered by display name.
func (s *Store) Enabled() []types.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(a types.Application) bool { return a.Enabled })
}

// Len returns the catalog size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apps)
}

// Replace swaps the snapshot for the given set.
func (s *Store) Replace(apps []types.Application) {
	next := make(map[string]types.Application, len(apps))
	for _, app := range apps {
		next[app.ID] = app
	}

	s.mu.Lock()
	s.apps = next
	s.mu.Unlock()
}

func (s *Store) sortedLocked(keep func(types.Application) bool) []types.Application {
	out := make([]types.Application, 0, len(s.apps))
	for _, app := range s.apps {
		if keep(app) {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
