package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroradesk/aurora-shell/internal/bridge"
	"github.com/auroradesk/aurora-shell/internal/config"
	"github.com/auroradesk/aurora-shell/internal/progress"
)

// execute runs the full command tree with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	AddCommands(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// isolate points config, data and bridge at per-test locations.
func isolate(t *testing.T, bridgeURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AURORA_DATA_DIR", dir)
	t.Setenv("AURORA_BRIDGE_URL", bridgeURL)
	return filepath.Join(dir, "shell.conf")
}

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/logs/tail", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"lines": r.URL.Query().Get("lines")})
	})
	mux.HandleFunc("/settings/set", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"saved": body})
	})
	mux.HandleFunc("/log/client", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "aurora ")
}

func TestBridgeRoutesListsEveryOperation(t *testing.T) {
	out, err := execute(t, "bridge", "routes")
	require.NoError(t, err)

	for _, op := range bridge.Routes() {
		assert.Contains(t, out, op.Name)
		assert.Contains(t, out, op.Path)
	}
}

func TestConfigInitShowPath(t *testing.T) {
	path := isolate(t, "http://127.0.0.1:9999")

	out, err := execute(t, "-c", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "-c", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "-c", path, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = execute(t, "-c", path, "config", "show")
	require.NoError(t, err)
	// Environment wins over the file.
	assert.Contains(t, out, "http://127.0.0.1:9999")
	assert.NotContains(t, out, "Warning")

	out, err = execute(t, "-c", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, config.FallbackLogPath(""))
}

func TestConfigShowWarnsOnRemoteBridge(t *testing.T) {
	path := isolate(t, "http://example.com:8765")

	out, err := execute(t, "-c", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "not a loopback")
}

func TestBridgePing(t *testing.T) {
	srv := fakeBackend(t)
	path := isolate(t, srv.URL)

	out, err := execute(t, "-c", path, "bridge", "ping")
	require.NoError(t, err)
	assert.Contains(t, out, `"ok": true`)
}

func TestBridgePingUnreachable(t *testing.T) {
	path := isolate(t, "http://127.0.0.1:1")

	_, err := execute(t, "-c", path, "bridge", "ping")
	require.Error(t, err)
	assert.True(t, bridge.IsUnreachable(err))
}

func TestBridgeTailClampsLines(t *testing.T) {
	srv := fakeBackend(t)
	path := isolate(t, srv.URL)

	out, err := execute(t, "-c", path, "bridge", "tail", "-n", "999999")
	require.NoError(t, err)
	assert.Contains(t, out, `"lines": "5000"`)
}

func TestBridgeCall(t *testing.T) {
	srv := fakeBackend(t)
	path := isolate(t, srv.URL)

	out, err := execute(t, "-c", path, "bridge", "call", "setSettings", "--data", `{"theme":"dark"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"theme": "dark"`)

	out, err = execute(t, "-c", path, "bridge", "call", "tailLogs", "--query", "lines=7")
	require.NoError(t, err)
	assert.Contains(t, out, `"lines": "7"`)

	_, err = execute(t, "-c", path, "bridge", "call", "rm-rf")
	assert.ErrorIs(t, err, bridge.ErrUnknownOperation)

	_, err = execute(t, "-c", path, "bridge", "call", "setSettings", "--data", "{nope")
	assert.ErrorContains(t, err, "not valid JSON")

	_, err = execute(t, "-c", path, "bridge", "call", "tailLogs", "--query", "lines")
	assert.ErrorContains(t, err, "key=value")
}

func TestBridgeLogFallsBack(t *testing.T) {
	path := isolate(t, "http://127.0.0.1:1")

	out, err := execute(t, "-c", path, "bridge", "log", "hello", "--detail", "from cli")
	require.NoError(t, err)
	assert.Contains(t, out, "written to")

	data, err := os.ReadFile(config.FallbackLogPath(""))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from cli")
}

func TestBridgeLogDelivered(t *testing.T) {
	srv := fakeBackend(t)
	path := isolate(t, srv.URL)

	out, err := execute(t, "-c", path, "bridge", "log", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Delivered")
	assert.NoFileExists(t, config.FallbackLogPath(""))
}

func TestWaitForBackendSucceeds(t *testing.T) {
	srv := fakeBackend(t)
	client, err := bridge.NewClient(srv.URL, bridge.DefaultPolicy(), nil, nil)
	require.NoError(t, err)
	b := bridge.New(client, bridge.NewFallbackLogger(filepath.Join(t.TempDir(), "f.log")), nil, nil)

	reply, err := waitForBackend(context.Background(), b, 5*time.Second, 10*time.Millisecond, progress.NewNoOpProgress())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(reply))
}

func TestWaitForBackendTimesOut(t *testing.T) {
	client, err := bridge.NewClient("http://127.0.0.1:1", bridge.DefaultPolicy(), nil, nil)
	require.NoError(t, err)
	b := bridge.New(client, bridge.NewFallbackLogger(filepath.Join(t.TempDir(), "f.log")), nil, nil)

	var buf bytes.Buffer
	start := time.Now()
	_, err = waitForBackend(context.Background(), b, 200*time.Millisecond, 20*time.Millisecond, progress.NewCLIProgress(&buf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not answer within")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, buf.String(), "waiting for backend")
}

func TestWaitForBackendStopsOnRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := bridge.NewClient(srv.URL, bridge.DefaultPolicy(), nil, nil)
	require.NoError(t, err)
	b := bridge.New(client, bridge.NewFallbackLogger(filepath.Join(t.TempDir(), "f.log")), nil, nil)

	_, err = waitForBackend(context.Background(), b, 5*time.Second, 10*time.Millisecond, progress.NewNoOpProgress())
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, bridge.StatusCode(err))
}

func TestBackendRunMissingExecutable(t *testing.T) {
	path := isolate(t, "http://127.0.0.1:1")

	_, err := execute(t, "-c", path, "backend", "run", "--exe", filepath.Join(t.TempDir(), "missing-backend"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not start")
}
