package instance

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/id"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Registry owns every tracked ApplicationInstance. All reads return copies;
// mutation goes through the typed operations so the transition table and
// window ownership rules cannot be bypassed.
//
// Instance ids are ULIDs minted at creation. A removed instance's id is
// never reissued.
type Registry struct {
	mu        sync.RWMutex
	instances map[id.InstanceID]*types.ApplicationInstance // Protected by mu

	lockMu sync.Mutex
	locks  map[id.InstanceID]*sync.Mutex // Protected by lockMu

	logger *logging.Logger
}

// NewRegistry creates an empty instance registry
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		instances: make(map[id.InstanceID]*types.ApplicationInstance),
		locks:     make(map[id.InstanceID]*sync.Mutex),
		logger:    logger.Component("instance-registry"),
	}
}

// Create registers a new instance in Starting state and returns a copy of it.
// The instance is presumed responding until the poller reports otherwise.
func (r *Registry) Create(app types.Application, pid int32, launchedBy string, virtual bool) types.ApplicationInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	instID := id.NewInstanceID()
	for {
		if _, exists := r.instances[instID]; !exists {
			break
		}
		instID = id.NewInstanceID()
	}

	now := time.Now()
	inst := &types.ApplicationInstance{
		ID:           instID,
		App:          app,
		PID:          pid,
		State:        types.StateStarting,
		StartTime:    now,
		LastUpdate:   now,
		LaunchedBy:   launchedBy,
		IsVirtual:    virtual,
		IsResponding: true,
	}
	r.instances[instID] = inst

	r.logger.Info("instance created",
		zap.String("instance_id", instID.String()),
		zap.String("app_id", app.ID),
		zap.Int32("pid", pid),
		zap.Bool("virtual", virtual),
	)
	return inst.Snapshot()
}

// Get retrieves a copy of an instance by id
func (r *Registry) Get(instID id.InstanceID) (types.ApplicationInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[instID]
	if !ok {
		return types.ApplicationInstance{}, false
	}
	return inst.Snapshot(), true
}

// List returns copies of all instances ordered by start time, then id
func (r *Registry) List() []types.ApplicationInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(*types.ApplicationInstance) bool { return true })
}

// ListLive returns copies of all non-terminal instances in List order
func (r *Registry) ListLive() []types.ApplicationInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(i *types.ApplicationInstance) bool { return i.State.Live() })
}

// listLocked collects matching instances sorted by StartTime then id.
// Caller must hold mu.
func (r *Registry) listLocked(keep func(*types.ApplicationInstance) bool) []types.ApplicationInstance {
	out := make([]types.ApplicationInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		if keep(inst) {
			out = append(out, inst.Snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindLiveByApp returns the earliest live instance of the given application.
// This is the duplicate-launch lookup: a hit means the app already occupies
// its single-instance slot.
func (r *Registry) FindLiveByApp(appID string) (types.ApplicationInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *types.ApplicationInstance
	for _, inst := range r.instances {
		if inst.App.ID != appID || !inst.State.Live() {
			continue
		}
		if found == nil || earlier(inst, found) {
			found = inst
		}
	}
	if found == nil {
		return types.ApplicationInstance{}, false
	}
	return found.Snapshot(), true
}

func earlier(a, b *types.ApplicationInstance) bool {
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	return a.ID < b.ID
}

// UpdateState moves an instance to a new state. Illegal transitions are
// rejected with a TransitionError and mutate nothing. A self-transition on a
// non-terminal state refreshes LastUpdate only. The registry emits no
// events; the caller owns notification.
func (r *Registry) UpdateState(instID id.InstanceID, to types.ApplicationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[instID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}
	if !inst.State.CanTransitionTo(to) {
		return errors.NewTransitionError(string(inst.State), string(to))
	}

	if inst.State == to {
		inst.LastUpdate = time.Now()
		return nil
	}

	from := inst.State
	inst.State = to
	inst.LastUpdate = time.Now()

	r.logger.Debug("state changed",
		zap.String("instance_id", instID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

// SetWindow binds the correlated main window to an instance. A handle that
// is currently bound to a different live instance is rejected with
// ErrInvalidHandle; windows change owners only after the previous owner
// terminates or releases the handle. Rebinding the same instance is allowed.
func (r *Registry) SetWindow(instID id.InstanceID, handle types.WindowHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[instID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}

	for _, other := range r.instances {
		if other.ID == instID || !other.State.Live() {
			continue
		}
		if other.Window != nil && other.Window.ID == handle.ID {
			return fmt.Errorf("%w: window %d belongs to instance %s",
				errors.ErrInvalidHandle, handle.ID, other.ID)
		}
	}

	h := handle
	inst.Window = &h
	inst.LastUpdate = time.Now()

	r.logger.Debug("window bound",
		zap.String("instance_id", instID.String()),
		zap.Uint64("window_id", handle.ID),
		zap.String("title", handle.Title),
	)
	return nil
}

// ClearWindow drops a stale window binding so correlation can run again
func (r *Registry) ClearWindow(instID id.InstanceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[instID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}
	inst.Window = nil
	inst.LastUpdate = time.Now()
	return nil
}

// Refresh applies fn to the live instance record under the registry lock and
// bumps LastUpdate. It is the poller's hook for liveness fields
// (IsResponding, IsMinimized, MemoryMB); state and window changes go through
// UpdateState and SetWindow.
func (r *Registry) Refresh(instID id.InstanceID, fn func(*types.ApplicationInstance)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[instID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}
	fn(inst)
	inst.LastUpdate = time.Now()
	return nil
}

// Remove deletes a terminal instance from the registry. Live instances
// cannot be removed; terminate them first.
func (r *Registry) Remove(instID id.InstanceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[instID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}
	if !inst.State.IsTerminal() {
		return fmt.Errorf("%w: cannot remove instance in state %s",
			errors.ErrInvalidTransition, inst.State)
	}
	delete(r.instances, instID)

	r.lockMu.Lock()
	delete(r.locks, instID)
	r.lockMu.Unlock()

	r.logger.Info("instance removed",
		zap.String("instance_id", instID.String()),
		zap.String("app_id", inst.App.ID),
	)
	return nil
}

// Locker returns the mutex serializing lifecycle operations on one instance.
// Launch, switch, terminate and poll hold this around their work so they
// never interleave on the same instance, while different instances proceed
// concurrently. The mutex lives until the instance is removed; a caller that
// loses a race with removal sees ErrInstanceNotFound from the guarded calls.
func (r *Registry) Locker(instID id.InstanceID) sync.Locker {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	l, ok := r.locks[instID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[instID] = l
	}
	return l
}

// Stats returns registry statistics
func (r *Registry) Stats() types.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := types.Stats{ByState: make(map[types.ApplicationState]int)}
	for _, inst := range r.instances {
		stats.Total++
		stats.ByState[inst.State]++
		if inst.State.Live() {
			stats.Live++
		}
		if inst.State == types.StateActive {
			if stats.ActiveID == nil || inst.ID < *stats.ActiveID {
				iid := inst.ID
				stats.ActiveID = &iid
			}
		}
	}
	return stats
}

// StateCounts returns instance counts keyed by state name, shaped for the
// metrics gauge
func (r *Registry) StateCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, inst := range r.instances {
		counts[string(inst.State)]++
	}
	return counts
}
