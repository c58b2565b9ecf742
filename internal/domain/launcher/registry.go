package launcher

import (
	"sync"

	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Registry holds the registered launchers in registration order.
type Registry struct {
	mu        sync.RWMutex
	launchers []Launcher
	logger    *logging.Logger
}

// NewRegistry creates an empty launcher registry
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{logger: logger.Component("launcher-registry")}
}

// Register appends a launcher. Registration order breaks priority ties.
func (r *Registry) Register(l Launcher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.launchers = append(r.launchers, l)
	r.logger.Info("launcher registered",
		zap.String("name", l.Name()),
		zap.String("category", string(l.Category())),
		zap.Int("priority", l.Priority()),
	)
}

// Select returns the launcher for an application: matching category,
// CanLaunch true, highest priority, first registered on ties. Nil when no
// launcher is eligible.
func (r *Registry) Select(app types.Application) Launcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Launcher
	for _, l := range r.launchers {
		if l.Category() != app.Category || !l.CanLaunch(app) {
			continue
		}
		if best == nil || l.Priority() > best.Priority() {
			best = l
		}
	}
	return best
}

// ByName finds a registered launcher by name
func (r *Registry) ByName(name string) (Launcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.launchers {
		if l.Name() == name {
			return l, true
		}
	}
	return nil, false
}

// All returns the registered launchers in registration order
func (r *Registry) All() []Launcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Launcher, len(r.launchers))
	copy(out, r.launchers)
	return out
}
