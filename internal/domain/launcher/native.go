package launcher

import (
	"context"
	"os/exec"

	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/utils"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
)

// Launcher priorities. Category defaults sit at priorityDefault; the
// app-mode browser outranks the default-browser opener so it wins when both
// are eligible.
const (
	priorityDefault = 10
	priorityAppMode = 50
)

// NativeProcess launches local executables as child processes.
type NativeProcess struct {
	win      winsys.Manager
	resolver *Resolver
	cfg      config.NativeConfig
	disc     config.DiscoveryConfig
	logger   *logging.Logger
	table    *procTable
}

// NewNativeProcess creates the native process launcher
func NewNativeProcess(win winsys.Manager, resolver *Resolver, cfg config.NativeConfig, disc config.DiscoveryConfig, logger *logging.Logger) *NativeProcess {
	log := logger.Component("native-launcher")
	return &NativeProcess{
		win:      win,
		resolver: resolver,
		cfg:      cfg,
		disc:     disc,
		logger:   log,
		table:    newProcTable(log),
	}
}

// SetExitHandler registers the callback fired when a spawned child exits
func (l *NativeProcess) SetExitHandler(fn ExitHandler) {
	l.table.SetExitHandler(fn)
}

func (l *NativeProcess) Name() string             { return "native-process" }
func (l *NativeProcess) Category() types.Category { return types.CategoryNative }
func (l *NativeProcess) Priority() int            { return priorityDefault }

// CanLaunch reports whether the catalog path resolves to an executable
func (l *NativeProcess) CanLaunch(app types.Application) bool {
	_, err := l.resolver.Resolve(context.Background(), app.Path)
	return err == nil
}

// Launch resolves and spawns the executable. The child's stdio is
// discarded; exits are reaped by the process table.
func (l *NativeProcess) Launch(ctx context.Context, app types.Application, launchedBy string) (Outcome, error) {
	path, err := l.resolver.Resolve(ctx, app.Path)
	if err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "resolve", err)
	}

	args, err := utils.SplitArgs(app.Arguments)
	if err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "arguments", err)
	}

	cmd := exec.Command(path, args...)
	if app.WorkDir != "" {
		cmd.Dir = app.WorkDir
	}

	pid, err := l.table.spawn(cmd)
	if err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "spawn", err)
	}

	l.logger.Info("process started",
		zap.String("app_id", app.ID),
		zap.String("path", path),
		zap.Int32("pid", pid),
	)
	return Outcome{PID: pid}, nil
}

// FindMainWindow runs one staged correlation pass for the child's window.
// The child pid is preferred, but launcher-stub programs that respawn under
// a new pid are still found through the any-pid stages.
func (l *NativeProcess) FindMainWindow(ctx context.Context, inst types.ApplicationInstance) (types.WindowHandle, error) {
	windows, err := l.win.EnumerateWindows(ctx)
	if err != nil {
		return types.WindowHandle{}, err
	}

	w, ok := Correlate(windows, Criteria{
		PID:         inst.PID,
		Title:       inst.App.ExpectedTitle(),
		Class:       inst.App.WindowClass,
		DenyTitles:  l.disc.DenyTitles,
		DenyClasses: l.disc.DenyClasses,
	})
	if !ok {
		return types.WindowHandle{}, errors.ErrNotFound
	}
	return w, nil
}

// SwitchTo brings the instance's window to the foreground
func (l *NativeProcess) SwitchTo(ctx context.Context, inst types.ApplicationInstance) error {
	w, err := boundWindow(inst)
	if err != nil {
		return err
	}
	return activateWindow(ctx, l.win, w.ID)
}

// Terminate closes the instance politely, killing after the grace period
// or immediately when forced
func (l *NativeProcess) Terminate(ctx context.Context, inst types.ApplicationInstance, force bool) error {
	return l.table.stop(ctx, l.win, inst, force, l.cfg.TerminateWait)
}

// Cleanup drops process bookkeeping for an ended instance
func (l *NativeProcess) Cleanup(ctx context.Context, inst types.ApplicationInstance) error {
	l.table.forget(inst.PID)
	return nil
}
