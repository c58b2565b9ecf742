package launcher

import (
	"context"
	"fmt"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
)

// activateWindow brings a window to the foreground: restore when minimized,
// activate, then force foreground when activation did not take.
func activateWindow(ctx context.Context, win winsys.Manager, windowID uint64) error {
	if minimized, err := win.IsWindowMinimized(ctx, windowID); err == nil && minimized {
		if err := win.RestoreWindow(ctx, windowID); err != nil {
			return err
		}
	}

	if err := win.ActivateWindow(ctx, windowID); err != nil {
		return err
	}

	if fg, err := win.IsWindowForeground(ctx, windowID); err == nil && !fg {
		return win.ForceToForeground(ctx, windowID)
	}
	return nil
}

// boundWindow returns the instance's window or an invalid-handle error when
// none is bound yet.
func boundWindow(inst types.ApplicationInstance) (types.WindowHandle, error) {
	if inst.Window == nil {
		return types.WindowHandle{}, fmt.Errorf("%w: instance %s has no window", errors.ErrInvalidHandle, inst.ID)
	}
	return *inst.Window, nil
}
