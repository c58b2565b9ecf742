package launcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys/winsystest"
)

func newNativeForTest(win *winsystest.Fake) *NativeProcess {
	cfg := config.NativeConfig{TerminateWait: 2 * time.Second}
	resolver := NewResolver(nil, logging.NewNop())
	return NewNativeProcess(win, resolver, cfg, config.DiscoveryConfig{}, logging.NewNop())
}

func nativeApp(id, path, args string) types.Application {
	return types.Application{
		ID:        id,
		Name:      id,
		Path:      path,
		Arguments: args,
		Category:  types.CategoryNative,
		Enabled:   true,
	}
}

func TestNativeLaunchReapsExit(t *testing.T) {
	l := newNativeForTest(winsystest.New())

	exits := make(chan int32, 1)
	l.SetExitHandler(func(pid int32, exitErr error) { exits <- pid })

	out, err := l.Launch(context.Background(), nativeApp("quick", "sh", `-c "exit 0"`), "operator")
	require.NoError(t, err)
	assert.Greater(t, out.PID, int32(0))
	assert.False(t, out.Virtual)

	select {
	case pid := <-exits:
		assert.Equal(t, out.PID, pid)
	case <-time.After(3 * time.Second):
		t.Fatal("exit callback not fired")
	}
}

func TestNativeLaunchResolveFailure(t *testing.T) {
	l := newNativeForTest(winsystest.New())

	_, err := l.Launch(context.Background(), nativeApp("ghost", "/nonexistent/bin/ghost", ""), "operator")
	require.Error(t, err)

	var lerr *errors.LaunchError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "resolve", lerr.Stage)
	assert.True(t, errors.IsNotFound(err))
}

func TestNativeTerminateForce(t *testing.T) {
	l := newNativeForTest(winsystest.New())

	exits := make(chan int32, 1)
	l.SetExitHandler(func(pid int32, exitErr error) { exits <- pid })

	out, err := l.Launch(context.Background(), nativeApp("sleeper", "sleep", "30"), "operator")
	require.NoError(t, err)

	inst := types.ApplicationInstance{ID: "inst_sleeper", App: nativeApp("sleeper", "sleep", "30"), PID: out.PID}
	require.NoError(t, l.Terminate(context.Background(), inst, true))

	select {
	case <-exits:
	case <-time.After(3 * time.Second):
		t.Fatal("killed process was not reaped")
	}

	// A second terminate on the reaped pid is a no-op.
	assert.NoError(t, l.Terminate(context.Background(), inst, true))
}

func TestNativeTerminatePoliteWithoutWindow(t *testing.T) {
	l := newNativeForTest(winsystest.New())

	out, err := l.Launch(context.Background(), nativeApp("sleeper", "sleep", "30"), "operator")
	require.NoError(t, err)

	inst := types.ApplicationInstance{ID: "inst_sleeper", PID: out.PID}
	start := time.Now()
	require.NoError(t, l.Terminate(context.Background(), inst, false))
	assert.Less(t, time.Since(start), 2*time.Second, "interrupt should end sleep before the kill deadline")
}

func TestNativeTerminatePoliteClosesWindow(t *testing.T) {
	win := winsystest.New()
	l := newNativeForTest(win)

	out, err := l.Launch(context.Background(), nativeApp("sleeper", "sleep", "30"), "operator")
	require.NoError(t, err)

	windowID := win.AddWindow(out.PID, "Sleeper", "", true)
	handle := types.WindowHandle{ID: windowID, Title: "Sleeper", PID: out.PID, Visible: true}
	inst := types.ApplicationInstance{ID: "inst_sleeper", PID: out.PID, Window: &handle}

	// The fake close does not end the real process, so the grace period
	// expires and the child is killed.
	l.cfg.TerminateWait = 200 * time.Millisecond
	require.NoError(t, l.Terminate(context.Background(), inst, false))
	assert.Equal(t, []uint64{windowID}, win.CloseRequests())
}

func TestNativeFindMainWindowPrefersTargetPID(t *testing.T) {
	win := winsystest.New()
	l := newNativeForTest(win)

	win.AddWindow(20, "GameX", "", true)
	wantID := win.AddWindow(10, "GameX - Loading", "", true)

	inst := types.ApplicationInstance{
		ID:  "inst_gamex",
		App: nativeApp("gamex", "gamex", ""),
		PID: 10,
	}
	inst.App.WindowTitle = "GameX"

	w, err := l.FindMainWindow(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, wantID, w.ID)
	assert.Equal(t, int32(10), w.PID)
}

func TestNativeFindMainWindowMiss(t *testing.T) {
	l := newNativeForTest(winsystest.New())

	inst := types.ApplicationInstance{ID: "inst_g", App: nativeApp("g", "g", ""), PID: 10}
	_, err := l.FindMainWindow(context.Background(), inst)
	assert.True(t, errors.IsNotFound(err))
}

func TestNativeSwitchTo(t *testing.T) {
	win := winsystest.New()
	l := newNativeForTest(win)

	windowID := win.AddWindow(10, "GameX", "", true)
	win.SetMinimized(windowID, true)

	handle := types.WindowHandle{ID: windowID, Title: "GameX", PID: 10, Visible: true}
	inst := types.ApplicationInstance{ID: "inst_gamex", PID: 10, Window: &handle}

	require.NoError(t, l.SwitchTo(context.Background(), inst))
	assert.Contains(t, win.Activated(), windowID)
	assert.Equal(t, windowID, win.Foreground())
}

func TestNativeSwitchToWithoutWindow(t *testing.T) {
	l := newNativeForTest(winsystest.New())

	err := l.SwitchTo(context.Background(), types.ApplicationInstance{ID: "inst_x", PID: 10})
	assert.True(t, errors.IsInvalidHandle(err))
}

func TestNativeCanLaunch(t *testing.T) {
	l := newNativeForTest(winsystest.New())

	assert.True(t, l.CanLaunch(nativeApp("sh", "sh", "")))
	assert.False(t, l.CanLaunch(nativeApp("ghost", "/nonexistent/bin/ghost", "")))
}
