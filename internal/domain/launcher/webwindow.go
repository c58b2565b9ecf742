package launcher

import (
	"context"
	"os/exec"

	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/webapp"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/utils"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
)

// WebWindow launches web applications in a dedicated browser window using
// the browser's app mode. Unlike WebURL the browser runs as a child
// process, so instances get a real pid and an ownable window. It registers
// at a higher priority: when an app-mode browser is configured it wins the
// web category over the default-browser opener.
type WebWindow struct {
	win    winsys.Manager
	prober *webapp.Prober
	cfg    config.BrowserConfig
	native config.NativeConfig
	disc   config.DiscoveryConfig
	logger *logging.Logger
	table  *procTable
}

// NewWebWindow creates the app-mode browser launcher
func NewWebWindow(win winsys.Manager, prober *webapp.Prober, cfg config.BrowserConfig, native config.NativeConfig, disc config.DiscoveryConfig, logger *logging.Logger) *WebWindow {
	log := logger.Component("webwindow-launcher")
	return &WebWindow{
		win:    win,
		prober: prober,
		cfg:    cfg,
		native: native,
		disc:   disc,
		logger: log,
		table:  newProcTable(log),
	}
}

// SetExitHandler registers the callback fired when a browser child exits
func (l *WebWindow) SetExitHandler(fn ExitHandler) {
	l.table.SetExitHandler(fn)
}

func (l *WebWindow) Name() string             { return "web-window" }
func (l *WebWindow) Category() types.Category { return types.CategoryWeb }
func (l *WebWindow) Priority() int            { return priorityAppMode }

// CanLaunch requires a configured browser binary and a well-formed URL
func (l *WebWindow) CanLaunch(app types.Application) bool {
	if l.cfg.Command == "" {
		return false
	}
	return utils.ValidateURL(app.Path, "path", true) == nil
}

// Launch spawns the configured browser with the app-mode flag
func (l *WebWindow) Launch(ctx context.Context, app types.Application, launchedBy string) (Outcome, error) {
	if err := utils.ValidateURL(app.Path, "path", true); err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "validate", err)
	}

	extra, err := utils.SplitArgs(app.Arguments)
	if err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "arguments", err)
	}

	args := make([]string, 0, len(l.cfg.Args)+len(extra)+1)
	args = append(args, l.cfg.Args...)
	args = append(args, "--app="+app.Path)
	args = append(args, extra...)

	pid, err := l.table.spawn(exec.Command(l.cfg.Command, args...))
	if err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "spawn", err)
	}

	l.logger.Info("app-mode browser started",
		zap.String("app_id", app.ID),
		zap.String("url", app.Path),
		zap.Int32("pid", pid),
	)
	return Outcome{PID: pid}, nil
}

// FindMainWindow correlates against the browser child first. Browsers that
// adopt the window into an existing process are still found through the
// any-pid stages.
func (l *WebWindow) FindMainWindow(ctx context.Context, inst types.ApplicationInstance) (types.WindowHandle, error) {
	windows, err := l.win.EnumerateWindows(ctx)
	if err != nil {
		return types.WindowHandle{}, err
	}

	w, ok := Correlate(windows, Criteria{
		PID:         inst.PID,
		Title:       l.prober.ExpectedTitle(ctx, inst.App),
		Class:       inst.App.WindowClass,
		DenyTitles:  l.disc.DenyTitles,
		DenyClasses: l.disc.DenyClasses,
	})
	if !ok {
		return types.WindowHandle{}, errors.ErrNotFound
	}
	return w, nil
}

// SwitchTo brings the app-mode window to the foreground
func (l *WebWindow) SwitchTo(ctx context.Context, inst types.ApplicationInstance) error {
	w, err := boundWindow(inst)
	if err != nil {
		return err
	}
	return activateWindow(ctx, l.win, w.ID)
}

// Terminate closes the app-mode window politely, killing the browser child
// after the grace period or immediately when forced
func (l *WebWindow) Terminate(ctx context.Context, inst types.ApplicationInstance, force bool) error {
	return l.table.stop(ctx, l.win, inst, force, l.native.TerminateWait)
}

// Cleanup drops process bookkeeping for an ended instance
func (l *WebWindow) Cleanup(ctx context.Context, inst types.ApplicationInstance) error {
	l.table.forget(inst.PID)
	return nil
}
