package launcher

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/webapp"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/utils"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
)

// EmbeddedBrowser launches web applications hosted inside the kiosk shell
// itself. No OS process is spawned: instances are virtual with the host's
// own pid, and their windows are views the shell opens in-process.
type EmbeddedBrowser struct {
	win     winsys.Manager
	prober  *webapp.Prober
	disc    config.DiscoveryConfig
	logger  *logging.Logger
	hostPID int32
}

// NewEmbeddedBrowser creates the in-process view launcher
func NewEmbeddedBrowser(win winsys.Manager, prober *webapp.Prober, disc config.DiscoveryConfig, logger *logging.Logger) *EmbeddedBrowser {
	return &EmbeddedBrowser{
		win:     win,
		prober:  prober,
		disc:    disc,
		logger:  logger.Component("embedded-launcher"),
		hostPID: int32(os.Getpid()),
	}
}

func (l *EmbeddedBrowser) Name() string             { return "embedded-browser" }
func (l *EmbeddedBrowser) Category() types.Category { return types.CategoryEmbedded }
func (l *EmbeddedBrowser) Priority() int            { return priorityDefault }

// CanLaunch accepts any well-formed http(s) URL
func (l *EmbeddedBrowser) CanLaunch(app types.Application) bool {
	return utils.ValidateURL(app.Path, "path", true) == nil
}

// Launch validates the URL and warms the title cache; the shell opens the
// actual view. The instance is virtual under the host pid.
func (l *EmbeddedBrowser) Launch(ctx context.Context, app types.Application, launchedBy string) (Outcome, error) {
	if err := utils.ValidateURL(app.Path, "path", true); err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "validate", err)
	}

	if app.WindowTitle == "" {
		if _, err := l.prober.Probe(ctx, app.Path); err != nil {
			l.logger.Debug("metadata probe failed",
				zap.String("app_id", app.ID),
				zap.Error(err),
			)
		}
	}

	return Outcome{PID: l.hostPID, Virtual: true}, nil
}

// FindMainWindow searches the host's own windows for the view
func (l *EmbeddedBrowser) FindMainWindow(ctx context.Context, inst types.ApplicationInstance) (types.WindowHandle, error) {
	windows, err := l.win.EnumerateProcessWindows(ctx, l.hostPID)
	if err != nil {
		return types.WindowHandle{}, err
	}

	w, ok := Correlate(windows, Criteria{
		PID:         l.hostPID,
		Title:       l.prober.ExpectedTitle(ctx, inst.App),
		DenyTitles:  l.disc.DenyTitles,
		DenyClasses: l.disc.DenyClasses,
	})
	if !ok {
		return types.WindowHandle{}, errors.ErrNotFound
	}
	return w, nil
}

// SwitchTo activates the host window bound to the instance
func (l *EmbeddedBrowser) SwitchTo(ctx context.Context, inst types.ApplicationInstance) error {
	w, err := boundWindow(inst)
	if err != nil {
		return err
	}
	return activateWindow(ctx, l.win, w.ID)
}

// Terminate closes the view window, releasing the instance's slot. There
// is no process to kill; force behaves like a polite close.
func (l *EmbeddedBrowser) Terminate(ctx context.Context, inst types.ApplicationInstance, force bool) error {
	if inst.Window == nil {
		return nil
	}
	err := l.win.CloseWindow(ctx, inst.Window.ID)
	if err != nil && errors.IsInvalidHandle(err) {
		return nil
	}
	return err
}

// Cleanup has nothing to release for in-process views
func (l *EmbeddedBrowser) Cleanup(ctx context.Context, inst types.ApplicationInstance) error {
	return nil
}
