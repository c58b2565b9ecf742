//go:build integration
// +build integration

package integration

import (
	"io"
	"net/http"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerVas333/WindowsLauncher-sub007/tests/helpers/testutil"
)

func decodeInto(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, out)
}

// TestDegradedWindowAgent runs the daemon against an unreachable window
// agent. Launch, list and terminate must keep working; anything that
// needs a window reports failure without erroring out.
func TestDegradedWindowAgent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testutil.NewConfig(t)
	cfg.Agent.Enabled = true
	cfg.Agent.URL = "http://127.0.0.1:9" // discard port, nothing listens
	testutil.WriteCatalog(t, cfg.Catalog.Dir, "apps.yaml",
		testutil.NativeApp("term-sleeper", "Sleeper", "/bin/sleep", "300"),
	)
	env := testutil.StartServer(t, cfg)

	t.Run("health reports agent down", func(t *testing.T) {
		status, got := env.GetJSON(t, "/health")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "healthy", got["status"])

		agent := got["agent"].(map[string]interface{})
		assert.Equal(t, true, agent["enabled"])
		assert.Equal(t, false, agent["connected"])
	})

	t.Run("launch still registers", func(t *testing.T) {
		instID := env.Launch(t, "term-sleeper", "")

		status, got := env.GetJSON(t, "/api/v1/instances/"+instID)
		require.Equal(t, http.StatusOK, status)
		inst := got["instance"].(map[string]interface{})
		assert.Equal(t, "starting", inst["state"])
		assert.Nil(t, inst["window"])

		status, got = env.PostJSON(t, "/api/v1/instances/"+instID+"/switch", "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, got["success"], "no window to focus")

		status, got = env.PostJSON(t, "/api/v1/instances/"+instID+"/terminate", "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, got["success"])
	})
}

// TestConcurrentLaunchSingleInstance fires parallel launch requests at one
// single-instance app. The per-app launch gate must collapse them onto a
// single live instance.
func TestConcurrentLaunchSingleInstance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testutil.NewConfig(t)
	testutil.WriteCatalog(t, cfg.Catalog.Dir, "apps.yaml",
		testutil.NativeApp("term-sleeper", "Sleeper", "/bin/sleep", "300"),
	)
	env := testutil.StartServer(t, cfg)

	const callers = 8

	type outcome struct {
		status int
		instID string
		err    error
	}
	results := make(chan outcome, callers)

	for i := 0; i < callers; i++ {
		go func() {
			resp, err := http.Post(env.URL("/api/v1/apps/term-sleeper/launch"), "", nil)
			if err != nil {
				results <- outcome{err: err}
				return
			}
			defer resp.Body.Close()

			var body struct {
				InstanceID string `json:"instance_id"`
			}
			if err := decodeInto(resp, &body); err != nil {
				results <- outcome{err: err}
				return
			}
			results <- outcome{status: resp.StatusCode, instID: body.InstanceID}
		}()
	}

	ids := map[string]int{}
	for i := 0; i < callers; i++ {
		r := <-results
		require.NoError(t, r.err)
		require.Equal(t, http.StatusOK, r.status)
		require.NotEmpty(t, r.instID)
		ids[r.instID]++
	}
	require.Len(t, ids, 1, "every caller should land on the same instance: %v", ids)

	status, got := env.GetJSON(t, "/api/v1/instances")
	require.Equal(t, http.StatusOK, status)
	stats := got["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["live"])
}
