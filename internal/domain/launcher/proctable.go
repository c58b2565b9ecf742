package launcher

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
)

// childProc is one spawned child. done closes after the Wait goroutine
// reaped the exit; waitErr is valid from then on.
type childProc struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// ExitHandler is notified whenever a spawned child exits, launcher-initiated
// or not. pid is the child's OS pid; exitErr is the Wait result.
type ExitHandler func(pid int32, exitErr error)

// procTable tracks the live children of a process-spawning launcher and
// reaps their exits. Native, app-mode browser and emulated launches share
// this bookkeeping.
type procTable struct {
	mu     sync.Mutex
	procs  map[int32]*childProc
	onExit ExitHandler
	logger *logging.Logger
}

func newProcTable(logger *logging.Logger) *procTable {
	return &procTable{
		procs:  make(map[int32]*childProc),
		logger: logger,
	}
}

// SetExitHandler registers the exit callback. Must be set before launches;
// exits reaped earlier are not replayed.
func (t *procTable) SetExitHandler(fn ExitHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExit = fn
}

// spawn starts cmd and begins reaping it. The returned pid is live until
// the exit handler fires for it.
func (t *procTable) spawn(cmd *exec.Cmd) (int32, error) {
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := int32(cmd.Process.Pid)

	p := &childProc{cmd: cmd, done: make(chan struct{})}
	t.mu.Lock()
	t.procs[pid] = p
	t.mu.Unlock()

	go t.reap(pid, p)
	return pid, nil
}

// reap waits for the child and notifies the exit handler
func (t *procTable) reap(pid int32, p *childProc) {
	p.waitErr = p.cmd.Wait()
	close(p.done)

	t.mu.Lock()
	delete(t.procs, pid)
	handler := t.onExit
	t.mu.Unlock()

	if p.waitErr != nil {
		t.logger.Info("process exited", zap.Int32("pid", pid), zap.Error(p.waitErr))
	} else {
		t.logger.Debug("process exited", zap.Int32("pid", pid))
	}
	if handler != nil {
		handler(pid, p.waitErr)
	}
}

// get returns the live child for pid, nil when already reaped
func (t *procTable) get(pid int32) *childProc {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.procs[pid]
}

// forget drops bookkeeping for pid without touching the process
func (t *procTable) forget(pid int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, pid)
}

// stop ends the instance's child process. Polite mode asks the window (or
// the process) to close and waits out the grace period before killing;
// force kills immediately. A child that already exited is a no-op.
func (t *procTable) stop(ctx context.Context, win winsys.Manager, inst types.ApplicationInstance, force bool, grace time.Duration) error {
	p := t.get(inst.PID)
	if p == nil {
		return nil
	}

	if force {
		return t.kill(p)
	}

	if inst.Window != nil {
		if err := win.CloseWindow(ctx, inst.Window.ID); err != nil && !errors.IsInvalidHandle(err) {
			t.logger.Warn("polite close failed",
				zap.Int32("pid", inst.PID),
				zap.Uint64("window_id", inst.Window.ID),
				zap.Error(err),
			)
		}
	} else if err := p.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		t.logger.Warn("interrupt failed", zap.Int32("pid", inst.PID), zap.Error(err))
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
		t.logger.Info("grace period expired, killing",
			zap.Int32("pid", inst.PID),
			zap.Duration("grace", grace),
		)
		return t.kill(p)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// kill terminates the child outright and waits for the reaper
func (t *procTable) kill(p *childProc) error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}
