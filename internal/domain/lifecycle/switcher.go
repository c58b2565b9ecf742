package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Switcher is the kiosk alt-tab: a cyclic selection over live instances
// ordered by display name. Open snapshots the set, Next/Previous/Select
// move the cursor, Commit switches to the selection, Cancel discards it.
type Switcher struct {
	mu      sync.Mutex
	orch    *Orchestrator
	entries []types.ApplicationInstance
	idx     int
	open    bool
}

// NewSwitcher creates a switcher over the orchestrator's instances.
func NewSwitcher(orch *Orchestrator) *Switcher {
	return &Switcher{orch: orch}
}

// Open snapshots the live instances and starts a selection round. The
// cursor begins on the active instance when there is one. An empty set
// leaves the switcher closed.
func (s *Switcher) Open() []types.ApplicationInstance {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.orch.ListRunning()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].App.Name != entries[j].App.Name {
			return entries[i].App.Name < entries[j].App.Name
		}
		return entries[i].ID < entries[j].ID
	})

	s.entries = entries
	s.idx = 0
	s.open = len(entries) > 0
	for i, e := range entries {
		if e.State == types.StateActive {
			s.idx = i
			break
		}
	}
	return entries
}

// Next advances the cursor, wrapping around the end.
func (s *Switcher) Next() (types.ApplicationInstance, bool) {
	return s.step(1)
}

// Previous moves the cursor back, wrapping around the start.
func (s *Switcher) Previous() (types.ApplicationInstance, bool) {
	return s.step(-1)
}

func (s *Switcher) step(delta int) (types.ApplicationInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || len(s.entries) == 0 {
		return types.ApplicationInstance{}, false
	}
	s.idx = (s.idx + delta + len(s.entries)) % len(s.entries)
	return s.entries[s.idx], true
}

// Select places the cursor on the given position.
func (s *Switcher) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return fmt.Errorf("%w: switcher not open", errors.ErrNotFound)
	}
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("%w: selection %d out of range [0,%d)", errors.ErrNotFound, i, len(s.entries))
	}
	s.idx = i
	return nil
}

// Current returns the instance under the cursor.
func (s *Switcher) Current() (types.ApplicationInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || len(s.entries) == 0 {
		return types.ApplicationInstance{}, false
	}
	return s.entries[s.idx], true
}

// Commit switches to the selected instance and closes the round. A closed
// or empty switcher is a no-op.
func (s *Switcher) Commit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if !s.open || len(s.entries) == 0 {
		s.open = false
		s.entries = nil
		s.mu.Unlock()
		return false, nil
	}
	target := s.entries[s.idx]
	s.open = false
	s.entries = nil
	s.mu.Unlock()

	return s.orch.SwitchTo(ctx, target.ID)
}

// Cancel closes the round without switching.
func (s *Switcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.entries = nil
}
