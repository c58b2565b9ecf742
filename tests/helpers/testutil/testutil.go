// Package testutil provides shared fixtures for launcher integration tests:
// catalog file builders, a test-friendly daemon configuration and an
// in-process server environment served over httptest.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/server"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// NativeApp returns an enabled native catalog record pointing at an
// executable path.
func NativeApp(id, name, path, args string) types.Application {
	return types.Application{
		ID:        id,
		Name:      name,
		Path:      path,
		Arguments: args,
		Category:  types.CategoryNative,
		Enabled:   true,
	}
}

// WebApp returns an enabled web catalog record for url.
func WebApp(id, name, url string) types.Application {
	return types.Application{
		ID:       id,
		Name:     name,
		Path:     url,
		Category: types.CategoryWeb,
		Enabled:  true,
	}
}

// WriteCatalog writes apps into dir under name, encoded by extension.
// The catalog loader accepts yaml, toml and json files side by side.
func WriteCatalog(t *testing.T, dir, name string, apps ...types.Application) {
	t.Helper()

	manifest := struct {
		Apps []types.Application `json:"apps" yaml:"apps" toml:"apps"`
	}{Apps: apps}

	var data []byte
	var err error
	switch ext := filepath.Ext(name); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(manifest)
	case ".toml":
		data, err = toml.Marshal(manifest)
	case ".json":
		data, err = sonic.MarshalIndent(manifest, "", "  ")
	default:
		t.Fatalf("unsupported catalog extension %q", ext)
	}
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

// NewConfig returns a daemon configuration suitable for in-process tests:
// a temp catalog directory, window agent off, quiet logs and child
// processes terminated on shutdown.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Catalog.Dir = t.TempDir()
	cfg.Catalog.Watch = false
	cfg.Agent.Enabled = false
	cfg.Server.TerminateOnStop = true
	cfg.Logging.Level = "error"
	return cfg
}

// Env is a launcher daemon wired from real configuration and served
// over httptest.
type Env struct {
	Server *server.Server
	HTTP   *httptest.Server
}

// StartServer builds the daemon from cfg and serves its router. Cleanup
// closes the daemon first so the event bus unwinds any live stream
// handlers before the listener shuts.
func StartServer(t *testing.T, cfg *config.Config) *Env {
	t.Helper()

	srv, err := server.NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		if err := srv.Close(); err != nil {
			t.Logf("server close: %v", err)
		}
		ts.Close()
	})
	return &Env{Server: srv, HTTP: ts}
}

// URL joins the server base with path.
func (e *Env) URL(path string) string {
	return e.HTTP.URL + path
}

// WSURL returns the websocket address for path.
func (e *Env) WSURL(path string) string {
	return strings.Replace(e.HTTP.URL, "http", "ws", 1) + path
}

// GetJSON performs a GET and decodes the JSON response body.
func (e *Env) GetJSON(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()

	resp, err := http.Get(e.URL(path))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp)
}

// GetBody performs a GET and returns the raw response body.
func (e *Env) GetBody(t *testing.T, path string) (int, string) {
	t.Helper()

	resp, err := http.Get(e.URL(path))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

// PostJSON performs a POST with an optional JSON body and decodes the
// response.
func (e *Env) PostJSON(t *testing.T, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(http.MethodPost, e.URL(path), rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp)
}

// Launch starts appID for user (empty means the handler default) and
// returns the instance id.
func (e *Env) Launch(t *testing.T, appID, user string) string {
	t.Helper()

	body := ""
	if user != "" {
		body = fmt.Sprintf(`{"launched_by": %q}`, user)
	}
	status, got := e.PostJSON(t, "/api/v1/apps/"+appID+"/launch", body)
	require.Equal(t, http.StatusOK, status, "launch %s: %v", appID, got)

	instID, _ := got["instance_id"].(string)
	require.NotEmpty(t, instID)
	return instID
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	if len(data) > 0 {
		require.NoError(t, sonic.Unmarshal(data, &out), "body: %s", data)
	}
	return out
}
