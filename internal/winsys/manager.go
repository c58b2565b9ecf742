package winsys

import (
	"context"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Manager is the only doorway to the OS window layer. Correlation and
// switching logic depends on this interface, never on the agent directly.
type Manager interface {
	// EnumerateWindows lists all top-level windows
	EnumerateWindows(ctx context.Context) ([]types.WindowHandle, error)

	// EnumerateProcessWindows lists top-level windows owned by pid
	EnumerateProcessWindows(ctx context.Context, pid int32) ([]types.WindowHandle, error)

	// FindWindowByTitle searches all windows by title. With exact false
	// a case-insensitive substring match is used. Returns ErrNotFound
	// when nothing matches.
	FindWindowByTitle(ctx context.Context, title string, exact bool) (types.WindowHandle, error)

	// GetWindowInfo revalidates a handle and returns its current state.
	// Returns ErrInvalidHandle when the window is gone.
	GetWindowInfo(ctx context.Context, id uint64) (types.WindowHandle, error)

	// IsWindowValid reports whether the handle still names a window.
	// Transport errors count as not valid.
	IsWindowValid(ctx context.Context, id uint64) bool

	// IsWindowVisible reports window visibility
	IsWindowVisible(ctx context.Context, id uint64) (bool, error)

	// IsWindowMinimized reports whether the window is iconified
	IsWindowMinimized(ctx context.Context, id uint64) (bool, error)

	// IsWindowForeground reports whether the window has focus
	IsWindowForeground(ctx context.Context, id uint64) (bool, error)

	// ActivateWindow brings the window to the foreground
	ActivateWindow(ctx context.Context, id uint64) error

	// ForceToForeground is the harder fallback when ActivateWindow is
	// refused by the window system
	ForceToForeground(ctx context.Context, id uint64) error

	// MinimizeWindow iconifies the window
	MinimizeWindow(ctx context.Context, id uint64) error

	// MaximizeWindow maximizes the window
	MaximizeWindow(ctx context.Context, id uint64) error

	// RestoreWindow restores the window from minimized or maximized state
	RestoreWindow(ctx context.Context, id uint64) error

	// CloseWindow asks the window to close politely
	CloseWindow(ctx context.Context, id uint64) error

	// ProcessStats returns memory and responsiveness for pid
	ProcessStats(ctx context.Context, pid int32) (types.ProcessStats, error)
}

// Unavailable returns a Manager whose every call fails with
// ErrUnavailable. The engine runs degraded on it: launches still
// register instances, but windows are never correlated.
func Unavailable() Manager {
	return unavailable{}
}

type unavailable struct{}

func (unavailable) EnumerateWindows(ctx context.Context) ([]types.WindowHandle, error) {
	return nil, errors.ErrUnavailable
}

func (unavailable) EnumerateProcessWindows(ctx context.Context, pid int32) ([]types.WindowHandle, error) {
	return nil, errors.ErrUnavailable
}

func (unavailable) FindWindowByTitle(ctx context.Context, title string, exact bool) (types.WindowHandle, error) {
	return types.WindowHandle{}, errors.ErrUnavailable
}

func (unavailable) GetWindowInfo(ctx context.Context, id uint64) (types.WindowHandle, error) {
	return types.WindowHandle{}, errors.ErrUnavailable
}

func (unavailable) IsWindowValid(ctx context.Context, id uint64) bool {
	return false
}

func (unavailable) IsWindowVisible(ctx context.Context, id uint64) (bool, error) {
	return false, errors.ErrUnavailable
}

func (unavailable) IsWindowMinimized(ctx context.Context, id uint64) (bool, error) {
	return false, errors.ErrUnavailable
}

func (unavailable) IsWindowForeground(ctx context.Context, id uint64) (bool, error) {
	return false, errors.ErrUnavailable
}

func (unavailable) ActivateWindow(ctx context.Context, id uint64) error {
	return errors.ErrUnavailable
}

func (unavailable) ForceToForeground(ctx context.Context, id uint64) error {
	return errors.ErrUnavailable
}

func (unavailable) MinimizeWindow(ctx context.Context, id uint64) error {
	return errors.ErrUnavailable
}

func (unavailable) MaximizeWindow(ctx context.Context, id uint64) error {
	return errors.ErrUnavailable
}

func (unavailable) RestoreWindow(ctx context.Context, id uint64) error {
	return errors.ErrUnavailable
}

func (unavailable) CloseWindow(ctx context.Context, id uint64) error {
	return errors.ErrUnavailable
}

func (unavailable) ProcessStats(ctx context.Context, pid int32) (types.ProcessStats, error) {
	return types.ProcessStats{}, errors.ErrUnavailable
}
