package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/launcher"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/id"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// scheduleDiscovery hands the instance to the bounded discovery pool. The
// extra goroutine keeps Launch from blocking while the pool is full.
func (o *Orchestrator) scheduleDiscovery(inst types.ApplicationInstance, l launcher.Launcher) {
	go func() {
		o.discoveries.Go(func() error {
			o.discoverWindow(o.baseCtx, inst.ID, l)
			return nil
		})
	}()
}

// discoverWindow retries the launcher's correlation pass with exponential
// backoff until the main window is bound or the per-app window init
// timeout elapses. On timeout the instance is marked NotResponding and
// kept; the poller still gives it a late binding chance each tick.
func (o *Orchestrator) discoverWindow(ctx context.Context, instID id.InstanceID, l launcher.Launcher) {
	inst, ok := o.instances.Get(instID)
	if !ok {
		return
	}

	timeout := o.cfg.Discovery.WindowInitTimeout(inst.App)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	backoff := o.cfg.Discovery.InitialBackoff
	for {
		cur, ok := o.instances.Get(instID)
		if !ok || cur.State.IsTerminal() {
			return
		}
		if cur.HasWindow() {
			return
		}

		handle, err := l.FindMainWindow(ctx, cur)
		if err == nil {
			if o.bindWindow(ctx, instID, handle, start) {
				return
			}
		} else if !errors.IsNotFound(err) && !errors.Is(err, errors.ErrUnavailable) && ctx.Err() == nil {
			o.logger.Debug("Window probe failed",
				zap.String("instance_id", instID.String()),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			o.giveUpDiscovery(instID, timeout)
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > o.cfg.Discovery.MaxBackoff {
			backoff = o.cfg.Discovery.MaxBackoff
		}
	}
}

// bindWindow registers the found handle and moves the instance onward from
// Starting. Returns false when the registry refused the handle, which keeps
// the discovery loop retrying for a different window.
func (o *Orchestrator) bindWindow(ctx context.Context, instID id.InstanceID, handle types.WindowHandle, start time.Time) bool {
	lk := o.instances.Locker(instID)
	lk.Lock()
	defer lk.Unlock()

	inst, ok := o.instances.Get(instID)
	if !ok || inst.State.IsTerminal() {
		return true
	}
	if err := o.instances.SetWindow(instID, handle); err != nil {
		o.logger.Warn("Window bind refused",
			zap.String("instance_id", instID.String()),
			zap.Uint64("window_id", handle.ID),
			zap.Error(err),
		)
		return false
	}

	from := inst.State
	if from != types.StateRunning {
		if err := o.instances.UpdateState(instID, types.StateRunning); err == nil {
			inst.State = types.StateRunning
			inst.Window = &handle
			o.bus.Publish(Event{Type: EventStateChanged, Instance: inst, From: from, To: types.StateRunning})
		}
	}

	if fg, err := o.win.IsWindowForeground(ctx, handle.ID); err == nil && fg {
		o.demoteActive(instID)
		if err := o.instances.UpdateState(instID, types.StateActive); err == nil {
			prev := inst.State
			inst.State = types.StateActive
			inst.Window = &handle
			o.bus.Publish(Event{Type: EventActivated, Instance: inst, From: prev, To: types.StateActive})
		}
	}

	o.metrics.RecordDiscovery(string(inst.App.Category), time.Since(start))
	o.logger.Info("Window bound",
		zap.String("instance_id", instID.String()),
		zap.Uint64("window_id", handle.ID),
		zap.String("title", handle.Title),
		zap.Duration("took", time.Since(start)),
	)
	return true
}

// giveUpDiscovery marks the instance NotResponding after the window init
// timeout. The instance stays registered.
func (o *Orchestrator) giveUpDiscovery(instID id.InstanceID, timeout time.Duration) {
	lk := o.instances.Locker(instID)
	lk.Lock()
	defer lk.Unlock()

	inst, ok := o.instances.Get(instID)
	if !ok || inst.State.IsTerminal() || inst.HasWindow() {
		return
	}

	from := inst.State
	if err := o.instances.UpdateState(instID, types.StateNotResponding); err != nil {
		return
	}
	inst.State = types.StateNotResponding
	o.bus.Publish(Event{Type: EventStateChanged, Instance: inst, From: from, To: types.StateNotResponding})
	o.metrics.RecordDiscoveryTimeout(string(inst.App.Category))
	o.logger.Warn("Window discovery timed out",
		zap.String("instance_id", instID.String()),
		zap.String("app_id", inst.App.ID),
		zap.Duration("timeout", timeout),
	)
}
