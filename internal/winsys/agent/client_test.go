package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/resilience"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := config.AgentConfig{
		URL:     url,
		Timeout: 500 * time.Millisecond,
		Retries: 0,
		Enabled: true,
	}
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	return New(cfg, logging.NewNop(), metrics)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func fakeAgent(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/health":
			w.WriteHeader(http.StatusOK)

		case "/v1/windows":
			windows := []map[string]any{
				{"id": 100, "title": "GameX - Loading", "class": "SDL_app", "pid": 10, "visible": true},
				{"id": 101, "title": "GameX", "class": "SDL_app", "pid": 20, "visible": true},
			}
			if r.URL.Query().Get("pid") == "10" {
				windows = windows[:1]
			}
			writeJSON(w, windows)

		case "/v1/windows/find":
			if r.URL.Query().Get("title") == "GameX" && r.URL.Query().Get("exact") == "true" {
				writeJSON(w, map[string]any{"id": 101, "title": "GameX", "class": "SDL_app", "pid": 20, "visible": true})
				return
			}
			http.NotFound(w, r)

		case "/v1/windows/100":
			writeJSON(w, map[string]any{"id": 100, "title": "GameX - Loading", "class": "SDL_app", "pid": 10, "visible": true})

		case "/v1/windows/100/state":
			writeJSON(w, map[string]any{"valid": true, "visible": true, "minimized": false, "foreground": true})

		case "/v1/windows/100/activate":
			w.WriteHeader(http.StatusOK)

		case "/v1/windows/666/activate":
			w.WriteHeader(http.StatusForbidden)

		case "/v1/processes/10/stats":
			writeJSON(w, map[string]any{"pid": 10, "memory_mb": 142.5, "responding": true, "running": true})

		default:
			// Anything else is a stale handle or unknown process
			http.NotFound(w, r)
		}
	}))
}

func TestClientEnumerateProcessWindows(t *testing.T) {
	srv := fakeAgent(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	all, err := c.EnumerateWindows(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	owned, err := c.EnumerateProcessWindows(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, uint64(100), owned[0].ID)
	assert.Equal(t, "GameX - Loading", owned[0].Title)
	assert.Equal(t, int32(10), owned[0].PID)
}

func TestClientFindWindowByTitle(t *testing.T) {
	srv := fakeAgent(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	win, err := c.FindWindowByTitle(context.Background(), "GameX", true)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), win.ID)

	_, err = c.FindWindowByTitle(context.Background(), "NoSuchApp", true)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	var agentErr *errors.AgentError
	require.True(t, errors.As(err, &agentErr))
	assert.Equal(t, "find_window", agentErr.Op)
	assert.Equal(t, 404, agentErr.Status)
}

func TestClientStaleHandleMapping(t *testing.T) {
	srv := fakeAgent(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.GetWindowInfo(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidHandle(err))
	assert.True(t, errors.IsRecoverable(err))

	err = c.ActivateWindow(context.Background(), 9999)
	assert.True(t, errors.IsInvalidHandle(err))
}

func TestClientPermissionMapping(t *testing.T) {
	srv := fakeAgent(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	err := c.ActivateWindow(context.Background(), 666)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))
}

func TestClientWindowState(t *testing.T) {
	srv := fakeAgent(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	assert.True(t, c.IsWindowValid(context.Background(), 100))
	assert.False(t, c.IsWindowValid(context.Background(), 9999))

	visible, err := c.IsWindowVisible(context.Background(), 100)
	require.NoError(t, err)
	assert.True(t, visible)

	fg, err := c.IsWindowForeground(context.Background(), 100)
	require.NoError(t, err)
	assert.True(t, fg)

	minimized, err := c.IsWindowMinimized(context.Background(), 100)
	require.NoError(t, err)
	assert.False(t, minimized)

	_, err = c.IsWindowVisible(context.Background(), 9999)
	assert.True(t, errors.IsInvalidHandle(err))
}

func TestClientProcessStats(t *testing.T) {
	srv := fakeAgent(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	stats, err := c.ProcessStats(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int32(10), stats.PID)
	assert.InDelta(t, 142.5, stats.MemoryMB, 0.001)
	assert.True(t, stats.Responding)
	assert.True(t, stats.Running)

	_, err = c.ProcessStats(context.Background(), 404)
	assert.True(t, errors.IsNotFound(err))
}

func TestClientTransportFailure(t *testing.T) {
	srv := fakeAgent(t)
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.EnumerateWindows(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
	assert.True(t, errors.IsRetryable(err))
}

func TestClientExpectedErrorsDoNotTripBreaker(t *testing.T) {
	srv := fakeAgent(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	for i := 0; i < 10; i++ {
		_, err := c.GetWindowInfo(context.Background(), 9999)
		require.Error(t, err)
	}

	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestClientBreakerOpensOnTransportFailures(t *testing.T) {
	srv := fakeAgent(t)
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	for i := 0; i < 6; i++ {
		_ = c.Ping(context.Background())
	}

	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	// Calls fail fast while open, still mapped to the taxonomy
	_, err := c.EnumerateWindows(context.Background())
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}
