package launcher

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/tracing"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/utils"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
)

// EmulatedApp runs catalog packages inside an external emulator host. The
// host exposes a gRPC health endpoint; launches are refused while it is not
// serving. Package windows belong to the host process tree and carry the
// host's window class.
type EmulatedApp struct {
	win    winsys.Manager
	cfg    config.EmulatorConfig
	native config.NativeConfig
	disc   config.DiscoveryConfig
	tracer *tracing.Tracer
	logger *logging.Logger
	table  *procTable

	// probe is the host readiness check, swappable in tests
	probe func(ctx context.Context) error
}

// NewEmulatedApp creates the emulator host launcher
func NewEmulatedApp(win winsys.Manager, cfg config.EmulatorConfig, native config.NativeConfig, disc config.DiscoveryConfig, tracer *tracing.Tracer, logger *logging.Logger) *EmulatedApp {
	log := logger.Component("emulated-launcher")
	l := &EmulatedApp{
		win:    win,
		cfg:    cfg,
		native: native,
		disc:   disc,
		tracer: tracer,
		logger: log,
		table:  newProcTable(log),
	}
	l.probe = l.checkHostReady
	return l
}

// SetExitHandler registers the callback fired when a package process exits
func (l *EmulatedApp) SetExitHandler(fn ExitHandler) {
	l.table.SetExitHandler(fn)
}

func (l *EmulatedApp) Name() string             { return "emulated-app" }
func (l *EmulatedApp) Category() types.Category { return types.CategoryEmulated }
func (l *EmulatedApp) Priority() int            { return priorityDefault }

// CanLaunch requires the emulator to be configured and the app to name a
// host package
func (l *EmulatedApp) CanLaunch(app types.Application) bool {
	if !l.cfg.Enabled || l.cfg.Command == "" {
		return false
	}
	return utils.ValidatePackageID(app.HostPackage, "host_package", true) == nil
}

// Launch verifies host readiness, then spawns the host command with the
// package argument
func (l *EmulatedApp) Launch(ctx context.Context, app types.Application, launchedBy string) (Outcome, error) {
	if err := l.probe(ctx); err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "host-health", err)
	}

	parts, err := utils.SplitArgs(l.cfg.Command)
	if err != nil || len(parts) == 0 {
		return Outcome{}, errors.NewLaunchError(app.ID, "host-command", fmt.Errorf("invalid emulator command %q", l.cfg.Command))
	}
	extra, err := utils.SplitArgs(app.Arguments)
	if err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "arguments", err)
	}

	args := append(parts[1:], "--package", app.HostPackage)
	args = append(args, extra...)

	pid, err := l.table.spawn(exec.Command(parts[0], args...))
	if err != nil {
		return Outcome{}, errors.NewLaunchError(app.ID, "spawn", err)
	}

	l.logger.Info("package started in emulator host",
		zap.String("app_id", app.ID),
		zap.String("package", app.HostPackage),
		zap.Int32("pid", pid),
	)
	return Outcome{PID: pid}, nil
}

// checkHostReady dials the host's gRPC health endpoint with a short
// deadline and requires SERVING.
func (l *EmulatedApp) checkHostReady(ctx context.Context) error {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if l.tracer != nil {
		opts = append(opts, grpc.WithUnaryInterceptor(tracing.GRPCClientInterceptor(l.tracer)))
	}

	conn, err := grpc.NewClient(l.cfg.HealthAddr, opts...)
	if err != nil {
		return fmt.Errorf("%w: dial emulator host: %v", errors.ErrUnavailable, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, l.cfg.HealthWait)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		if status.Code(err) == codes.DeadlineExceeded {
			return fmt.Errorf("%w: emulator host health check: %v", errors.ErrTimeout, err)
		}
		return fmt.Errorf("%w: emulator host health check: %v", errors.ErrUnavailable, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: emulator host is %s", errors.ErrUnavailable, resp.GetStatus())
	}
	return nil
}

// FindMainWindow runs the full staged search: package windows usually live
// in the host's process tree rather than under the spawned pid, so the
// any-pid exact stage is restricted to the host window class.
func (l *EmulatedApp) FindMainWindow(ctx context.Context, inst types.ApplicationInstance) (types.WindowHandle, error) {
	windows, err := l.win.EnumerateWindows(ctx)
	if err != nil {
		return types.WindowHandle{}, err
	}

	w, ok := Correlate(windows, Criteria{
		PID:         inst.PID,
		Title:       inst.App.ExpectedTitle(),
		Class:       l.hostClass(inst.App),
		DenyTitles:  l.disc.DenyTitles,
		DenyClasses: l.disc.DenyClasses,
	})
	if !ok {
		return types.WindowHandle{}, errors.ErrNotFound
	}
	return w, nil
}

// hostClass prefers a per-app window class over the emulator default
func (l *EmulatedApp) hostClass(app types.Application) string {
	if app.WindowClass != "" {
		return app.WindowClass
	}
	return l.cfg.WindowClass
}

// SwitchTo brings the package window to the foreground
func (l *EmulatedApp) SwitchTo(ctx context.Context, inst types.ApplicationInstance) error {
	w, err := boundWindow(inst)
	if err != nil {
		return err
	}
	return activateWindow(ctx, l.win, w.ID)
}

// Terminate asks the host to stop the package by closing its window; the
// package process is killed only when forced or after the grace period
func (l *EmulatedApp) Terminate(ctx context.Context, inst types.ApplicationInstance, force bool) error {
	return l.table.stop(ctx, l.win, inst, force, l.native.TerminateWait)
}

// Cleanup drops process bookkeeping for an ended instance
func (l *EmulatedApp) Cleanup(ctx context.Context, inst types.ApplicationInstance) error {
	l.table.forget(inst.PID)
	return nil
}
