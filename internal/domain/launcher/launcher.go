// Package launcher implements the polymorphic launch strategies: native
// processes, browser URLs, app-mode browser windows, embedded views and
// emulated packages. A registry selects the launcher for an application by
// category, eligibility and priority; staged correlation binds launched
// instances to their main windows.
package launcher

import (
	"context"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Launcher starts, finds, switches and stops applications of one category.
// Implementations keep no instance state beyond process bookkeeping; the
// instance registry is the single source of truth.
type Launcher interface {
	// Name identifies the launcher in logs and selection traces
	Name() string

	// Category is the application family this launcher serves
	Category() types.Category

	// Priority orders eligible launchers within a category; higher wins
	Priority() int

	// CanLaunch reports whether this launcher can start the application
	CanLaunch(app types.Application) bool

	// Launch starts the application. A failed launch leaves nothing
	// behind; any spawned process is killed before the error returns.
	Launch(ctx context.Context, app types.Application, launchedBy string) (Outcome, error)

	// FindMainWindow runs a single correlation pass for the instance's
	// main window. The retry loop lives in the discovery worker.
	FindMainWindow(ctx context.Context, inst types.ApplicationInstance) (types.WindowHandle, error)

	// SwitchTo brings the instance's window to the foreground
	SwitchTo(ctx context.Context, inst types.ApplicationInstance) error

	// Terminate stops the instance, politely unless force is set
	Terminate(ctx context.Context, inst types.ApplicationInstance, force bool) error

	// Cleanup releases launcher-held resources after the instance ended
	Cleanup(ctx context.Context, inst types.ApplicationInstance) error
}

// Outcome describes a successful launch.
type Outcome struct {
	PID     int32               // OS process id; 0 for handle-less launches
	Virtual bool                // Instance runs inside the launcher process
	Window  *types.WindowHandle // Non-nil when the launcher already found the window
}
