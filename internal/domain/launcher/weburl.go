package launcher

import (
	"context"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/webapp"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/utils"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
)

// WebURL opens web applications in the user's default browser. The browser
// is not a child of the launcher, so instances are handle-less with a
// synthetic pid of 0; correlation relies on the any-pid stages and the
// expected title from the prober.
type WebURL struct {
	win    winsys.Manager
	prober *webapp.Prober
	disc   config.DiscoveryConfig
	logger *logging.Logger
	open   func(url string) error
}

// NewWebURL creates the default-browser launcher
func NewWebURL(win winsys.Manager, prober *webapp.Prober, disc config.DiscoveryConfig, logger *logging.Logger) *WebURL {
	return &WebURL{
		win:    win,
		prober: prober,
		disc:   disc,
		logger: logger.Component("weburl-launcher"),
		open:   browser.OpenURL,
	}
}

func (l *WebURL) Name() string             { return "web-url" }
func (l *WebURL) Category() types.Category { return types.CategoryWeb }
func (l *WebURL) Priority() int            { return priorityDefault }

// CanLaunch accepts any well-formed http(s) URL
func (l *WebURL) CanLaunch(app types.Application) bool {
	return utils.ValidateURL(app.Path, "path", true) == nil
}

// Launch hands the URL to the default browser. There is no child process
// to track; the instance is identified by its correlated window alone.
func (l *WebURL) Launch(ctx context.Context, app types.Application, launchedBy string) (Outcome, error) {
	if err := utils.ValidateURL(app.Path, "path", true); err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "validate", err)
	}
	if err := l.open(app.Path); err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "open", err)
	}

	l.logger.Info("opened in default browser",
		zap.String("app_id", app.ID),
		zap.String("url", app.Path),
	)
	return Outcome{PID: 0}, nil
}

// FindMainWindow searches every pid for the expected title; with no child
// pid the pid-scoped stages never apply.
func (l *WebURL) FindMainWindow(ctx context.Context, inst types.ApplicationInstance) (types.WindowHandle, error) {
	windows, err := l.win.EnumerateWindows(ctx)
	if err != nil {
		return types.WindowHandle{}, err
	}

	w, ok := Correlate(windows, Criteria{
		PID:         0,
		Title:       l.prober.ExpectedTitle(ctx, inst.App),
		DenyTitles:  l.disc.DenyTitles,
		DenyClasses: l.disc.DenyClasses,
	})
	if !ok {
		return types.WindowHandle{}, errors.ErrNotFound
	}
	return w, nil
}

// SwitchTo activates the correlated browser tab's window. When no window is
// known the URL is reopened; the browser surfaces the existing tab or
// creates one.
func (l *WebURL) SwitchTo(ctx context.Context, inst types.ApplicationInstance) error {
	if inst.Window != nil && l.win.IsWindowValid(ctx, inst.Window.ID) {
		return activateWindow(ctx, l.win, inst.Window.ID)
	}
	return l.open(inst.App.Path)
}

// Terminate closes the correlated window when one is known. The browser
// process itself is never killed; it belongs to the user.
func (l *WebURL) Terminate(ctx context.Context, inst types.ApplicationInstance, force bool) error {
	if inst.Window == nil {
		return nil
	}
	err := l.win.CloseWindow(ctx, inst.Window.ID)
	if err != nil && errors.IsInvalidHandle(err) {
		return nil
	}
	return err
}

// Cleanup has nothing to release for browser-tab instances
func (l *WebURL) Cleanup(ctx context.Context, inst types.ApplicationInstance) error {
	return nil
}
