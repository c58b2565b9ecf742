package launcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/webapp"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys/winsystest"
)

func webAppWithTitle(id, url, title string) types.Application {
	return types.Application{
		ID:          id,
		Name:        id,
		Path:        url,
		Category:    types.CategoryWeb,
		Enabled:     true,
		WindowTitle: title,
	}
}

func TestWebWindowCanLaunchRequiresBrowser(t *testing.T) {
	win := winsystest.New()
	prober := webapp.NewProber(logging.NewNop())
	app := webAppWithTitle("board", "https://board.example.com", "Board")

	bare := NewWebWindow(win, prober, config.BrowserConfig{}, config.NativeConfig{}, config.DiscoveryConfig{}, logging.NewNop())
	assert.False(t, bare.CanLaunch(app))

	configured := NewWebWindow(win, prober, config.BrowserConfig{Command: "chromium"}, config.NativeConfig{}, config.DiscoveryConfig{}, logging.NewNop())
	assert.True(t, configured.CanLaunch(app))
	assert.False(t, configured.CanLaunch(webAppWithTitle("bad", "not-a-url", "Bad")))
}

func TestWebLauncherOverlapResolution(t *testing.T) {
	win := winsystest.New()
	prober := webapp.NewProber(logging.NewNop())
	app := webAppWithTitle("board", "https://board.example.com", "Board")

	opener := NewWebURL(win, prober, config.DiscoveryConfig{}, logging.NewNop())
	appMode := NewWebWindow(win, prober, config.BrowserConfig{Command: "chromium"}, config.NativeConfig{}, config.DiscoveryConfig{}, logging.NewNop())

	r := NewRegistry(logging.NewNop())
	r.Register(opener)
	r.Register(appMode)

	got := r.Select(app)
	require.NotNil(t, got)
	assert.Equal(t, "web-window", got.Name(), "a configured app-mode browser outranks the default browser")

	// Without a browser binary only the URL opener is eligible.
	bare := NewWebWindow(win, prober, config.BrowserConfig{}, config.NativeConfig{}, config.DiscoveryConfig{}, logging.NewNop())
	r2 := NewRegistry(logging.NewNop())
	r2.Register(opener)
	r2.Register(bare)

	got = r2.Select(app)
	require.NotNil(t, got)
	assert.Equal(t, "web-url", got.Name())
}

func TestWebURLLaunchUsesOpener(t *testing.T) {
	win := winsystest.New()
	l := NewWebURL(win, webapp.NewProber(logging.NewNop()), config.DiscoveryConfig{}, logging.NewNop())

	var opened []string
	l.open = func(url string) error {
		opened = append(opened, url)
		return nil
	}

	out, err := l.Launch(context.Background(), webAppWithTitle("board", "https://board.example.com", "Board"), "operator")
	require.NoError(t, err)
	assert.Equal(t, int32(0), out.PID)
	assert.False(t, out.Virtual)
	assert.Nil(t, out.Window)
	assert.Equal(t, []string{"https://board.example.com"}, opened)
}

func TestWebURLFindMainWindowSearchesAnyPID(t *testing.T) {
	win := winsystest.New()
	l := NewWebURL(win, webapp.NewProber(logging.NewNop()), config.DiscoveryConfig{}, logging.NewNop())

	wantID := win.AddWindow(7777, "Board - Chromium", "Chrome", true)
	inst := types.ApplicationInstance{
		ID:  "inst_board",
		App: webAppWithTitle("board", "https://board.example.com", "Board"),
		PID: 0,
	}

	w, err := l.FindMainWindow(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, wantID, w.ID)
}

func TestWebURLSwitchToReopensWithoutWindow(t *testing.T) {
	win := winsystest.New()
	l := NewWebURL(win, webapp.NewProber(logging.NewNop()), config.DiscoveryConfig{}, logging.NewNop())

	var opened []string
	l.open = func(url string) error {
		opened = append(opened, url)
		return nil
	}

	inst := types.ApplicationInstance{
		ID:  "inst_board",
		App: webAppWithTitle("board", "https://board.example.com", "Board"),
	}
	require.NoError(t, l.SwitchTo(context.Background(), inst))
	assert.Equal(t, []string{"https://board.example.com"}, opened)
}

func TestWebURLSwitchToActivatesKnownWindow(t *testing.T) {
	win := winsystest.New()
	l := NewWebURL(win, webapp.NewProber(logging.NewNop()), config.DiscoveryConfig{}, logging.NewNop())

	windowID := win.AddWindow(7777, "Board", "Chrome", true)
	handle := types.WindowHandle{ID: windowID, Title: "Board", PID: 7777, Visible: true}
	inst := types.ApplicationInstance{
		ID:     "inst_board",
		App:    webAppWithTitle("board", "https://board.example.com", "Board"),
		Window: &handle,
	}

	l.open = func(string) error {
		t.Fatal("must not reopen when the window is alive")
		return nil
	}
	require.NoError(t, l.SwitchTo(context.Background(), inst))
	assert.Contains(t, win.Activated(), windowID)
}

func TestEmbeddedLaunchIsVirtual(t *testing.T) {
	win := winsystest.New()
	l := NewEmbeddedBrowser(win, webapp.NewProber(logging.NewNop()), config.DiscoveryConfig{}, logging.NewNop())

	out, err := l.Launch(context.Background(), webAppWithTitle("board", "https://board.example.com", "Board"), "operator")
	require.NoError(t, err)
	assert.True(t, out.Virtual)
	assert.Equal(t, l.hostPID, out.PID)
}

func TestEmbeddedFindMainWindowInHostPID(t *testing.T) {
	win := winsystest.New()
	l := NewEmbeddedBrowser(win, webapp.NewProber(logging.NewNop()), config.DiscoveryConfig{}, logging.NewNop())

	win.AddWindow(424242, "Board", "", true)
	wantID := win.AddWindow(l.hostPID, "Board", "", true)

	inst := types.ApplicationInstance{
		ID:        "inst_board",
		App:       webAppWithTitle("board", "https://board.example.com", "Board"),
		PID:       l.hostPID,
		IsVirtual: true,
	}

	w, err := l.FindMainWindow(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, wantID, w.ID)
}
