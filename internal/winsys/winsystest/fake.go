// Package winsystest provides an in-memory winsys.Manager for tests.
//
// The fake keeps a mutable window tree: tests add and remove windows, set
// titles, visibility, and foreground, script per-method errors, and inspect
// recorded activation and close calls.
package winsystest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Fake is an in-memory window tree implementing winsys.Manager.
type Fake struct {
	mu         sync.Mutex
	windows    map[uint64]types.WindowHandle
	minimized  map[uint64]bool
	foreground uint64
	stats      map[int32]types.ProcessStats
	failures   map[string]error
	nextID     uint64

	activated []uint64
	forced    []uint64
	closed    []uint64
}

// New creates an empty fake window tree.
func New() *Fake {
	return &Fake{
		windows:   make(map[uint64]types.WindowHandle),
		minimized: make(map[uint64]bool),
		stats:     make(map[int32]types.ProcessStats),
		failures:  make(map[string]error),
		nextID:    1000,
	}
}

// ----------------------------------------------------------------------------
// Test controls
// ----------------------------------------------------------------------------

// AddWindow adds a window and returns its handle id.
func (f *Fake) AddWindow(pid int32, title, class string, visible bool) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.windows[id] = types.WindowHandle{
		ID:      id,
		Title:   title,
		Class:   class,
		PID:     pid,
		Visible: visible,
	}
	return id
}

// RemoveWindow drops a window from the tree.
func (f *Fake) RemoveWindow(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, id)
	delete(f.minimized, id)
	if f.foreground == id {
		f.foreground = 0
	}
}

// SetTitle changes a window title.
func (f *Fake) SetTitle(id uint64, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[id]; ok {
		w.Title = title
		f.windows[id] = w
	}
}

// SetVisible changes a window's visibility.
func (f *Fake) SetVisible(id uint64, visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[id]; ok {
		w.Visible = visible
		f.windows[id] = w
	}
}

// SetForeground marks a window as focused.
func (f *Fake) SetForeground(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.foreground = id
}

// SetMinimized changes a window's minimized flag.
func (f *Fake) SetMinimized(id uint64, minimized bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minimized[id] = minimized
}

// SetStats scripts process stats for pid.
func (f *Fake) SetStats(pid int32, stats types.ProcessStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[pid] = stats
}

// RemoveProcess drops a process: its stats and all its windows.
func (f *Fake) RemoveProcess(pid int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stats, pid)
	for id, w := range f.windows {
		if w.PID == pid {
			delete(f.windows, id)
			delete(f.minimized, id)
			if f.foreground == id {
				f.foreground = 0
			}
		}
	}
}

// FailWith scripts a persistent error for the named method
// ("EnumerateWindows", "ActivateWindow", ...). Clear with ClearFailures.
func (f *Fake) FailWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// ClearFailures removes all scripted errors.
func (f *Fake) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]error)
}

// Activated returns the ids passed to ActivateWindow, in order.
func (f *Fake) Activated() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, len(f.activated))
	copy(out, f.activated)
	return out
}

// Forced returns the ids passed to ForceToForeground, in order.
func (f *Fake) Forced() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, len(f.forced))
	copy(out, f.forced)
	return out
}

// CloseRequests returns the ids passed to CloseWindow, in order.
func (f *Fake) CloseRequests() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, len(f.closed))
	copy(out, f.closed)
	return out
}

// Foreground returns the currently focused window id, 0 for none.
func (f *Fake) Foreground() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.foreground
}

func (f *Fake) scripted(method string) error {
	return f.failures[method]
}

// ----------------------------------------------------------------------------
// winsys.Manager implementation
// ----------------------------------------------------------------------------

// EnumerateWindows lists all windows ordered by handle id.
func (f *Fake) EnumerateWindows(ctx context.Context) ([]types.WindowHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("EnumerateWindows"); err != nil {
		return nil, err
	}
	return f.sortedLocked(func(types.WindowHandle) bool { return true }), nil
}

// EnumerateProcessWindows lists windows owned by pid ordered by handle id.
func (f *Fake) EnumerateProcessWindows(ctx context.Context, pid int32) ([]types.WindowHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("EnumerateProcessWindows"); err != nil {
		return nil, err
	}
	return f.sortedLocked(func(w types.WindowHandle) bool { return w.PID == pid }), nil
}

// FindWindowByTitle returns the first window matching title in handle order.
func (f *Fake) FindWindowByTitle(ctx context.Context, title string, exact bool) (types.WindowHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("FindWindowByTitle"); err != nil {
		return types.WindowHandle{}, err
	}
	for _, w := range f.sortedLocked(func(types.WindowHandle) bool { return true }) {
		if matchTitle(w.Title, title, exact) {
			return w, nil
		}
	}
	return types.WindowHandle{}, errors.ErrNotFound
}

// GetWindowInfo returns the current state of a handle.
func (f *Fake) GetWindowInfo(ctx context.Context, id uint64) (types.WindowHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("GetWindowInfo"); err != nil {
		return types.WindowHandle{}, err
	}
	w, ok := f.windows[id]
	if !ok {
		return types.WindowHandle{}, errors.ErrInvalidHandle
	}
	return w, nil
}

// IsWindowValid reports whether the handle still names a window.
func (f *Fake) IsWindowValid(ctx context.Context, id uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("IsWindowValid"); err != nil {
		return false
	}
	_, ok := f.windows[id]
	return ok
}

// IsWindowVisible reports window visibility.
func (f *Fake) IsWindowVisible(ctx context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("IsWindowVisible"); err != nil {
		return false, err
	}
	w, ok := f.windows[id]
	if !ok {
		return false, errors.ErrInvalidHandle
	}
	return w.Visible, nil
}

// IsWindowMinimized reports whether the window is iconified.
func (f *Fake) IsWindowMinimized(ctx context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("IsWindowMinimized"); err != nil {
		return false, err
	}
	if _, ok := f.windows[id]; !ok {
		return false, errors.ErrInvalidHandle
	}
	return f.minimized[id], nil
}

// IsWindowForeground reports whether the window has focus.
func (f *Fake) IsWindowForeground(ctx context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("IsWindowForeground"); err != nil {
		return false, err
	}
	if _, ok := f.windows[id]; !ok {
		return false, errors.ErrInvalidHandle
	}
	return f.foreground == id, nil
}

// ActivateWindow focuses the window and restores it if minimized.
func (f *Fake) ActivateWindow(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("ActivateWindow"); err != nil {
		return err
	}
	if _, ok := f.windows[id]; !ok {
		return errors.ErrInvalidHandle
	}
	f.activated = append(f.activated, id)
	f.minimized[id] = false
	f.foreground = id
	return nil
}

// ForceToForeground focuses the window through the fallback path.
func (f *Fake) ForceToForeground(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("ForceToForeground"); err != nil {
		return err
	}
	if _, ok := f.windows[id]; !ok {
		return errors.ErrInvalidHandle
	}
	f.forced = append(f.forced, id)
	f.minimized[id] = false
	f.foreground = id
	return nil
}

// MinimizeWindow iconifies the window.
func (f *Fake) MinimizeWindow(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("MinimizeWindow"); err != nil {
		return err
	}
	if _, ok := f.windows[id]; !ok {
		return errors.ErrInvalidHandle
	}
	f.minimized[id] = true
	if f.foreground == id {
		f.foreground = 0
	}
	return nil
}

// MaximizeWindow maximizes the window.
func (f *Fake) MaximizeWindow(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("MaximizeWindow"); err != nil {
		return err
	}
	if _, ok := f.windows[id]; !ok {
		return errors.ErrInvalidHandle
	}
	f.minimized[id] = false
	return nil
}

// RestoreWindow restores the window.
func (f *Fake) RestoreWindow(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("RestoreWindow"); err != nil {
		return err
	}
	if _, ok := f.windows[id]; !ok {
		return errors.ErrInvalidHandle
	}
	f.minimized[id] = false
	return nil
}

// CloseWindow removes the window, as if the app honored the close request.
func (f *Fake) CloseWindow(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("CloseWindow"); err != nil {
		return err
	}
	if _, ok := f.windows[id]; !ok {
		return errors.ErrInvalidHandle
	}
	f.closed = append(f.closed, id)
	delete(f.windows, id)
	delete(f.minimized, id)
	if f.foreground == id {
		f.foreground = 0
	}
	return nil
}

// ProcessStats returns scripted stats, or a running default when the
// process still owns windows.
func (f *Fake) ProcessStats(ctx context.Context, pid int32) (types.ProcessStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.scripted("ProcessStats"); err != nil {
		return types.ProcessStats{}, err
	}
	if stats, ok := f.stats[pid]; ok {
		return stats, nil
	}
	for _, w := range f.windows {
		if w.PID == pid {
			return types.ProcessStats{PID: pid, Responding: true, Running: true}, nil
		}
	}
	return types.ProcessStats{}, errors.ErrNotFound
}

func (f *Fake) sortedLocked(keep func(types.WindowHandle) bool) []types.WindowHandle {
	out := make([]types.WindowHandle, 0, len(f.windows))
	for _, w := range f.windows {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matchTitle(title, query string, exact bool) bool {
	if exact {
		return title == query
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}
