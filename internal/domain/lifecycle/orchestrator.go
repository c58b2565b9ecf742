package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/catalog"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/instance"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/launcher"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/id"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
)

// Orchestrator drives the full instance lifecycle: launch with dedup,
// asynchronous window discovery, foreground switching and termination.
// Every state mutation goes through the registry's transition table, and
// multi-step operations on one instance serialize on its lock.
type Orchestrator struct {
	catalog   *catalog.Store
	launchers *launcher.Registry
	instances *instance.Registry
	win       winsys.Manager
	bus       *Bus
	cfg       *config.Config
	metrics   *monitoring.Metrics
	logger    *logging.Logger

	mu         sync.Mutex
	byInstance map[id.InstanceID]launcher.Launcher
	gates      map[string]*sync.Mutex

	baseCtx     context.Context
	cancel      context.CancelFunc
	discoveries *errgroup.Group
}

// NewOrchestrator wires the lifecycle engine. The returned orchestrator owns
// the event bus and the discovery worker pool until Shutdown.
func NewOrchestrator(
	store *catalog.Store,
	launchers *launcher.Registry,
	instances *instance.Registry,
	win winsys.Manager,
	cfg *config.Config,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	discoveries := &errgroup.Group{}
	discoveries.SetLimit(cfg.Discovery.MaxConcurrent)

	return &Orchestrator{
		catalog:     store,
		launchers:   launchers,
		instances:   instances,
		win:         win,
		bus:         NewBus(logger, metrics),
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger.Component("orchestrator"),
		byInstance:  make(map[id.InstanceID]launcher.Launcher),
		gates:       make(map[string]*sync.Mutex),
		baseCtx:     ctx,
		cancel:      cancel,
		discoveries: discoveries,
	}
}

// Launch starts the application and returns the new instance id, or the
// existing live instance's id when single-instance dedup redirects the
// caller. The call returns at registration; window correlation continues
// in the background.
func (o *Orchestrator) Launch(ctx context.Context, appID, launchedBy string) (id.InstanceID, error) {
	start := time.Now()

	app, ok := o.catalog.Get(appID)
	if !ok {
		return "", fmt.Errorf("%w: app %q", errors.ErrNotFound, appID)
	}
	if !app.Enabled {
		return "", fmt.Errorf("%w: app %q is disabled", errors.ErrPermissionDenied, appID)
	}

	l := o.launchers.Select(app)
	if l == nil {
		return "", fmt.Errorf("%w: no launcher available for app %q (category %s)",
			errors.ErrNotFound, appID, app.Category)
	}

	// One launch decision per app at a time, so two concurrent requests
	// cannot both miss the dedup check and spawn twice.
	gate := o.gate(app.ID)
	gate.Lock()
	defer gate.Unlock()

	if app.SingleInstance() {
		if live, found := o.findLive(app, launchedBy); found {
			return o.redirectToLive(ctx, app, live, launchedBy, start)
		}
	}

	outcome, err := l.Launch(ctx, app, launchedBy)
	if err != nil {
		o.metrics.RecordLaunch(string(app.Category), "error", time.Since(start))
		o.logger.Error("Launch failed",
			zap.String("app_id", app.ID),
			zap.String("launcher", l.Name()),
			zap.Error(err),
		)
		return "", err
	}

	inst := o.instances.Create(app, outcome.PID, launchedBy, outcome.Virtual)
	o.mu.Lock()
	o.byInstance[inst.ID] = l
	o.mu.Unlock()

	o.bus.Publish(Event{Type: EventStateChanged, Instance: inst, To: inst.State})
	o.metrics.RecordLaunch(string(app.Category), "success", time.Since(start))
	o.logger.Info("Instance launched",
		zap.String("instance_id", inst.ID.String()),
		zap.String("app_id", app.ID),
		zap.String("launcher", l.Name()),
		zap.Int32("pid", inst.PID),
	)

	if outcome.Window != nil {
		o.bindWindow(o.baseCtx, inst.ID, *outcome.Window, start)
	} else {
		o.scheduleDiscovery(inst, l)
	}
	return inst.ID, nil
}

// redirectToLive implements the single-instance short circuit: same user (or
// a switch policy) gets the existing instance brought to the foreground, a
// different user under the deny policy gets ErrAlreadyRunning.
func (o *Orchestrator) redirectToLive(ctx context.Context, app types.Application, live types.ApplicationInstance, launchedBy string, start time.Time) (id.InstanceID, error) {
	if live.LaunchedBy != launchedBy && o.cfg.Dedup.CrossUser == config.CrossUserDeny {
		o.metrics.RecordLaunch(string(app.Category), "denied", time.Since(start))
		return "", fmt.Errorf("%w: app %q started by %s", errors.ErrAlreadyRunning, app.ID, live.LaunchedBy)
	}

	o.metrics.RecordLaunch(string(app.Category), "deduped", time.Since(start))
	o.logger.Info("Instance already running, switching",
		zap.String("instance_id", live.ID.String()),
		zap.String("app_id", app.ID),
		zap.String("launched_by", launchedBy),
	)
	if _, err := o.SwitchTo(ctx, live.ID); err != nil {
		o.logger.Warn("Switch to existing instance failed",
			zap.String("instance_id", live.ID.String()),
			zap.Error(err),
		)
	}
	return live.ID, nil
}

// findLive returns the earliest live instance holding the app's
// single-instance slot. With per-user dedup only the caller's own
// instances count.
func (o *Orchestrator) findLive(app types.Application, launchedBy string) (types.ApplicationInstance, bool) {
	if !o.cfg.Dedup.PerUser {
		return o.instances.FindLiveByApp(app.ID)
	}
	for _, inst := range o.instances.ListLive() {
		if inst.App.ID == app.ID && inst.LaunchedBy == launchedBy {
			return inst, true
		}
	}
	return types.ApplicationInstance{}, false
}

// SwitchTo brings the instance's window to the foreground. A stale handle
// gets one re-discovery attempt; an instance that cannot be focused yields
// (false, nil) rather than an error unless the window system itself failed.
func (o *Orchestrator) SwitchTo(ctx context.Context, instID id.InstanceID) (bool, error) {
	if _, ok := o.instances.Get(instID); !ok {
		return false, fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}

	lk := o.instances.Locker(instID)
	lk.Lock()
	defer lk.Unlock()

	inst, ok := o.instances.Get(instID)
	if !ok {
		return false, fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}
	if inst.State.IsTerminal() {
		o.metrics.RecordSwitch("terminal")
		return false, nil
	}

	l := o.launcherFor(inst)
	if l == nil {
		return false, fmt.Errorf("%w: no launcher available for app %q", errors.ErrNotFound, inst.App.ID)
	}

	if inst.HasWindow() && !o.win.IsWindowValid(ctx, inst.Window.ID) {
		o.logger.Debug("Window handle stale, re-discovering",
			zap.String("instance_id", instID.String()),
			zap.Uint64("window_id", inst.Window.ID),
		)
		if err := o.instances.ClearWindow(instID); err != nil {
			return false, err
		}
		inst.Window = nil
		if handle, err := l.FindMainWindow(ctx, inst); err == nil {
			if err := o.instances.SetWindow(instID, handle); err == nil {
				inst.Window = &handle
			}
		}
		if inst.Window == nil {
			o.metrics.RecordSwitch("stale")
			return false, nil
		}
	}

	if err := l.SwitchTo(ctx, inst); err != nil {
		if errors.IsRecoverable(err) || errors.IsNotFound(err) {
			o.logger.Debug("Switch recovered locally",
				zap.String("instance_id", instID.String()),
				zap.Error(err),
			)
			o.metrics.RecordSwitch("miss")
			return false, nil
		}
		o.metrics.RecordSwitch("error")
		return false, err
	}

	o.demoteActive(instID)
	if inst.State != types.StateActive {
		if err := o.instances.UpdateState(instID, types.StateActive); err == nil {
			from := inst.State
			inst.State = types.StateActive
			o.bus.Publish(Event{Type: EventActivated, Instance: inst, From: from, To: types.StateActive})
		}
	}
	o.metrics.RecordSwitch("success")
	return true, nil
}

// demoteActive moves every other active instance back to Running. Single
// registry transitions need no per-instance lock, so concurrent switches
// cannot deadlock demoting each other.
func (o *Orchestrator) demoteActive(except id.InstanceID) {
	for _, other := range o.instances.ListLive() {
		if other.ID == except || other.State != types.StateActive {
			continue
		}
		if err := o.instances.UpdateState(other.ID, types.StateRunning); err != nil {
			continue
		}
		other.State = types.StateRunning
		o.bus.Publish(Event{Type: EventDeactivated, Instance: other, From: types.StateActive, To: types.StateRunning})
	}
}

// Terminate stops the instance, politely unless force is set. Cleanup
// failures are logged and never block removal.
func (o *Orchestrator) Terminate(ctx context.Context, instID id.InstanceID, force bool) (bool, error) {
	if _, ok := o.instances.Get(instID); !ok {
		return false, fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}

	lk := o.instances.Locker(instID)
	lk.Lock()
	defer lk.Unlock()

	inst, ok := o.instances.Get(instID)
	if !ok {
		return false, fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}
	if inst.State.IsTerminal() {
		o.removeInstance(ctx, inst)
		return true, nil
	}

	from := inst.State
	if err := o.instances.UpdateState(instID, types.StateClosing); err == nil {
		inst.State = types.StateClosing
		o.bus.Publish(Event{Type: EventStateChanged, Instance: inst, From: from, To: types.StateClosing})
	}

	if l := o.launcherFor(inst); l != nil {
		if err := l.Terminate(ctx, inst, force); err != nil {
			if !errors.IsRecoverable(err) && !errors.IsNotFound(err) {
				o.metrics.RecordTermination("error")
				o.logger.Warn("Terminate failed",
					zap.String("instance_id", instID.String()),
					zap.Bool("force", force),
					zap.Error(err),
				)
				return false, err
			}
			o.logger.Debug("Terminate recovered locally",
				zap.String("instance_id", instID.String()),
				zap.Error(err),
			)
		}
	}

	o.finishInstance(ctx, &inst)
	result := "success"
	if force {
		result = "forced"
	}
	o.metrics.RecordTermination(result)
	o.logger.Info("Instance terminated",
		zap.String("instance_id", instID.String()),
		zap.String("app_id", inst.App.ID),
		zap.Bool("force", force),
	)
	return true, nil
}

// finishInstance marks the instance terminated, publishes the closed event
// and removes it. Caller must hold the instance lock.
func (o *Orchestrator) finishInstance(ctx context.Context, inst *types.ApplicationInstance) {
	if err := o.instances.UpdateState(inst.ID, types.StateTerminated); err != nil {
		// Closing is reachable from every live state, so route through it
		// when the direct edge is missing.
		if err := o.instances.UpdateState(inst.ID, types.StateClosing); err == nil {
			_ = o.instances.UpdateState(inst.ID, types.StateTerminated)
		}
	}
	inst.State = types.StateTerminated
	o.bus.Publish(Event{Type: EventClosed, Instance: *inst})
	o.removeInstance(ctx, *inst)
}

// removeInstance runs launcher cleanup and drops the registry record.
// Caller must hold the instance lock.
func (o *Orchestrator) removeInstance(ctx context.Context, inst types.ApplicationInstance) {
	if l := o.launcherFor(inst); l != nil {
		if err := l.Cleanup(ctx, inst); err != nil {
			o.logger.Warn("Cleanup failed, removing instance anyway",
				zap.String("instance_id", inst.ID.String()),
				zap.Error(err),
			)
		}
	}
	if err := o.instances.Remove(inst.ID); err != nil {
		o.logger.Warn("Failed to remove instance",
			zap.String("instance_id", inst.ID.String()),
			zap.Error(err),
		)
	}
	o.mu.Lock()
	delete(o.byInstance, inst.ID)
	o.mu.Unlock()
}

// HandleProcessExit reacts to a supervised child exiting: the owning
// instance is terminated, cleaned up and removed. Wired as the exit
// handler of process-backed launchers.
func (o *Orchestrator) HandleProcessExit(pid int32, exitErr error) {
	for _, candidate := range o.instances.ListLive() {
		if candidate.PID != pid || candidate.IsVirtual {
			continue
		}

		lk := o.instances.Locker(candidate.ID)
		lk.Lock()
		inst, ok := o.instances.Get(candidate.ID)
		if !ok || inst.State.IsTerminal() {
			lk.Unlock()
			continue
		}
		o.finishInstance(o.baseCtx, &inst)
		lk.Unlock()

		o.metrics.RecordTermination("exited")
		o.logger.Info("Process exited, instance closed",
			zap.String("instance_id", inst.ID.String()),
			zap.String("app_id", inst.App.ID),
			zap.Int32("pid", pid),
			zap.Error(exitErr),
		)
		return
	}
}

// Get returns a snapshot of the instance.
func (o *Orchestrator) Get(instID id.InstanceID) (types.ApplicationInstance, error) {
	inst, ok := o.instances.Get(instID)
	if !ok {
		return types.ApplicationInstance{}, fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instID)
	}
	return inst, nil
}

// ListRunning returns snapshots of all live instances.
func (o *Orchestrator) ListRunning() []types.ApplicationInstance {
	return o.instances.ListLive()
}

// Stats returns registry aggregates.
func (o *Orchestrator) Stats() types.Stats {
	return o.instances.Stats()
}

// Events returns the lifecycle event bus for subscription.
func (o *Orchestrator) Events() *Bus {
	return o.bus
}

// Shutdown stops discovery workers, optionally terminates remaining
// instances and closes all event subscribers.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.cancel()
	_ = o.discoveries.Wait()

	if o.cfg.Server.TerminateOnStop {
		for _, inst := range o.instances.ListLive() {
			if _, err := o.Terminate(ctx, inst.ID, false); err != nil {
				o.logger.Warn("Shutdown termination failed",
					zap.String("instance_id", inst.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	o.bus.Close()
	o.logger.Info("Orchestrator stopped")
}

// launcherFor returns the launcher that started the instance, falling back
// to fresh selection when the mapping is gone.
func (o *Orchestrator) launcherFor(inst types.ApplicationInstance) launcher.Launcher {
	o.mu.Lock()
	l, ok := o.byInstance[inst.ID]
	o.mu.Unlock()
	if ok {
		return l
	}
	return o.launchers.Select(inst.App)
}

// gate returns the per-app launch mutex, minting it on first use.
func (o *Orchestrator) gate(appID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, ok := o.gates[appID]
	if !ok {
		g = &sync.Mutex{}
		o.gates[appID] = g
	}
	return g
}
