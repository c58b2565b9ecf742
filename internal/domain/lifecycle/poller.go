package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Poller keeps registry state in line with the outside world: process
// liveness, window validity, focus and responsiveness. Each tick fans live
// instances out over a bounded worker group.
type Poller struct {
	orch   *Orchestrator
	cfg    config.PollConfig
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller over the orchestrator's instances.
func NewPoller(orch *Orchestrator, cfg config.PollConfig, logger *logging.Logger) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		orch:   orch,
		cfg:    cfg,
		logger: logger.Component("poller"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the poll loop. A disabled poller finishes immediately.
func (p *Poller) Start() {
	if !p.cfg.Enabled {
		p.logger.Info("Poller disabled")
		close(p.done)
		return
	}
	p.logger.Info("Poller started", zap.Duration("interval", p.cfg.Interval))
	go p.loop()
}

// Close stops the loop and waits for the current tick to finish. Call
// after Start.
func (p *Poller) Close() {
	p.cancel()
	<-p.done
}

func (p *Poller) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Poller) tick() {
	start := time.Now()

	g := &errgroup.Group{}
	g.SetLimit(p.cfg.Concurrency)
	for _, inst := range p.orch.instances.ListLive() {
		inst := inst
		g.Go(func() error {
			p.orch.pollInstance(p.ctx, inst)
			return nil
		})
	}
	_ = g.Wait()

	p.orch.metrics.SetInstanceStates(p.orch.instances.StateCounts())
	p.orch.metrics.RecordPollCycle(time.Since(start))
}

// pollInstance refreshes one instance. Runs under the instance lock like
// every other multi-step mutation.
func (o *Orchestrator) pollInstance(ctx context.Context, snap types.ApplicationInstance) {
	lk := o.instances.Locker(snap.ID)
	lk.Lock()
	defer lk.Unlock()

	inst, ok := o.instances.Get(snap.ID)
	if !ok || inst.State.IsTerminal() {
		return
	}

	// Virtual instances share this process; their liveness is ours.
	if !inst.IsVirtual && inst.PID > 0 {
		stats, err := o.win.ProcessStats(ctx, inst.PID)
		switch {
		case err == nil && !stats.Running, errors.IsNotFound(err):
			o.instanceGone(ctx, &inst)
			return
		case err == nil:
			_ = o.instances.Refresh(inst.ID, func(in *types.ApplicationInstance) {
				in.MemoryMB = stats.MemoryMB
				in.IsResponding = stats.Responding
			})
			inst.MemoryMB = stats.MemoryMB
			inst.IsResponding = stats.Responding
			if !stats.Responding {
				o.markNotResponding(&inst)
			} else if inst.State == types.StateNotResponding && inst.HasWindow() {
				o.recoverResponding(&inst)
			}
		default:
			// Facade degraded; liveness unknown this tick.
		}
	}

	if inst.HasWindow() {
		o.pollWindow(ctx, &inst)
	} else if inst.State == types.StateNotResponding {
		o.lateBind(ctx, &inst)
	}
}

// pollWindow checks handle validity and focus. A vanished window with a
// live process means the app lost its UI: NotResponding until a new window
// shows up.
func (o *Orchestrator) pollWindow(ctx context.Context, inst *types.ApplicationInstance) {
	if !o.win.IsWindowValid(ctx, inst.Window.ID) {
		o.logger.Debug("Window vanished",
			zap.String("instance_id", inst.ID.String()),
			zap.Uint64("window_id", inst.Window.ID),
		)
		_ = o.instances.ClearWindow(inst.ID)
		inst.Window = nil
		o.markNotResponding(inst)
		return
	}

	minimized, err := o.win.IsWindowMinimized(ctx, inst.Window.ID)
	if err != nil {
		return
	}
	_ = o.instances.Refresh(inst.ID, func(in *types.ApplicationInstance) {
		in.IsMinimized = minimized
	})
	inst.IsMinimized = minimized

	// Hung apps keep their window; focus bookkeeping waits for recovery.
	if inst.State == types.StateNotResponding {
		return
	}

	if minimized {
		if inst.State != types.StateRunning && inst.State != types.StateActive {
			return
		}
		from := inst.State
		if err := o.instances.UpdateState(inst.ID, types.StateMinimized); err != nil {
			return
		}
		inst.State = types.StateMinimized
		evt := EventStateChanged
		if from == types.StateActive {
			evt = EventDeactivated
		}
		o.bus.Publish(Event{Type: evt, Instance: *inst, From: from, To: types.StateMinimized})
		return
	}

	fg, err := o.win.IsWindowForeground(ctx, inst.Window.ID)
	if err != nil {
		return
	}
	switch {
	case fg && inst.State != types.StateActive:
		from := inst.State
		if err := o.instances.UpdateState(inst.ID, types.StateActive); err != nil {
			return
		}
		o.demoteActive(inst.ID)
		inst.State = types.StateActive
		o.bus.Publish(Event{Type: EventActivated, Instance: *inst, From: from, To: types.StateActive})
	case !fg && inst.State == types.StateActive:
		if err := o.instances.UpdateState(inst.ID, types.StateRunning); err != nil {
			return
		}
		inst.State = types.StateRunning
		o.bus.Publish(Event{Type: EventDeactivated, Instance: *inst, From: types.StateActive, To: types.StateRunning})
	case !fg && inst.State == types.StateMinimized:
		if err := o.instances.UpdateState(inst.ID, types.StateRunning); err != nil {
			return
		}
		from := types.StateMinimized
		inst.State = types.StateRunning
		o.bus.Publish(Event{Type: EventStateChanged, Instance: *inst, From: from, To: types.StateRunning})
	}
}

// lateBind retries correlation once per tick for instances whose discovery
// window expired. Finding the window now recovers them to Running.
func (o *Orchestrator) lateBind(ctx context.Context, inst *types.ApplicationInstance) {
	l := o.launcherFor(*inst)
	if l == nil {
		return
	}
	handle, err := l.FindMainWindow(ctx, *inst)
	if err != nil {
		return
	}
	if err := o.instances.SetWindow(inst.ID, handle); err != nil {
		return
	}
	inst.Window = &handle
	o.recoverResponding(inst)
}

// markNotResponding moves a live instance to NotResponding. Caller must
// hold the instance lock.
func (o *Orchestrator) markNotResponding(inst *types.ApplicationInstance) {
	if inst.State == types.StateNotResponding {
		return
	}
	from := inst.State
	if err := o.instances.UpdateState(inst.ID, types.StateNotResponding); err != nil {
		return
	}
	inst.State = types.StateNotResponding
	o.bus.Publish(Event{Type: EventStateChanged, Instance: *inst, From: from, To: types.StateNotResponding})
	o.logger.Warn("Instance not responding",
		zap.String("instance_id", inst.ID.String()),
		zap.String("app_id", inst.App.ID),
	)
}

// recoverResponding moves a NotResponding instance back to Running. Caller
// must hold the instance lock.
func (o *Orchestrator) recoverResponding(inst *types.ApplicationInstance) {
	if err := o.instances.UpdateState(inst.ID, types.StateRunning); err != nil {
		return
	}
	from := inst.State
	inst.State = types.StateRunning
	o.bus.Publish(Event{Type: EventStateChanged, Instance: *inst, From: from, To: types.StateRunning})
	o.logger.Info("Instance recovered",
		zap.String("instance_id", inst.ID.String()),
		zap.String("app_id", inst.App.ID),
	)
}

// instanceGone closes out an instance whose process disappeared. Caller
// must hold the instance lock.
func (o *Orchestrator) instanceGone(ctx context.Context, inst *types.ApplicationInstance) {
	o.logger.Info("Process gone, instance closed",
		zap.String("instance_id", inst.ID.String()),
		zap.String("app_id", inst.App.ID),
		zap.Int32("pid", inst.PID),
	)
	o.finishInstance(ctx, inst)
	o.metrics.RecordTermination("exited")
}
