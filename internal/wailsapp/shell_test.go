//go:build !windows

package wailsapp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroradesk/aurora-shell/internal/bridge"
	"github.com/auroradesk/aurora-shell/internal/config"
	"github.com/auroradesk/aurora-shell/internal/instance"
	"github.com/auroradesk/aurora-shell/internal/tray"
	"github.com/auroradesk/aurora-shell/internal/window"
)

type recordingSurface struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingSurface) Show()  { r.add("show") }
func (r *recordingSurface) Hide()  { r.add("hide") }
func (r *recordingSurface) Focus() { r.add("focus") }

func (r *recordingSurface) add(c string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recordingSurface) count(c string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if call == c {
			n++
		}
	}
	return n
}

type nopMenu struct {
	mu      sync.Mutex
	actions tray.Actions
}

func (m *nopMenu) Run(a tray.Actions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = a
}
func (m *nopMenu) SetTooltip(string) {}
func (m *nopMenu) Quit()             {}

func testConfig(t *testing.T) *config.ShellConfig {
	t.Helper()
	t.Setenv("AURORA_DATA_DIR", t.TempDir())
	cfg := config.NewShellConfig()
	// No backend binary exists here: the shell must stay usable anyway.
	cfg.Backend.Executable = filepath.Join(t.TempDir(), "aurora-backend")
	cfg.Bridge.BaseURL = "http://127.0.0.1:1"
	return cfg
}

func runtimeDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "aur")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestShellLifecycle(t *testing.T) {
	cfg := testConfig(t)
	dir := runtimeDir(t)

	menu := &nopMenu{}
	shell, err := NewShell(cfg, Deps{Guard: instance.New(dir, nil), Menu: menu})
	require.NoError(t, err)

	proceed, err := shell.Prepare(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, proceed)

	st := shell.Supervisor.Status()
	assert.False(t, st.Running)
	assert.NotEmpty(t, st.LastError, "spawn failure is recorded, not fatal")

	surface := &recordingSurface{}
	quits := 0
	shell.Startup(context.Background(), surface, func() { quits++ })
	assert.Equal(t, window.Uninitialized, shell.Window.State())

	shell.DomReady()
	assert.Equal(t, window.Visible, shell.Window.State())

	// Closing hides and keeps the window.
	assert.True(t, shell.BeforeClose())
	assert.Equal(t, window.Hidden, shell.Window.State())

	// Tray open restores it.
	menu.actions.Open()
	assert.Equal(t, window.Visible, shell.Window.State())

	// Tray quit, then the toolkit's shutdown hook.
	menu.actions.Quit()
	assert.Equal(t, 1, quits)
	assert.False(t, shell.BeforeClose(), "close proceeds once quitting")
	shell.Shutdown()
	shell.Shutdown()
	assert.False(t, shell.Guard.Held())
}

func TestShutdownStopsBackend(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	cfg := testConfig(t)
	cfg.Backend.Executable = sleep
	cfg.Backend.EntryPoint = "30"

	menu := &nopMenu{}
	shell, err := NewShell(cfg, Deps{Guard: instance.New(runtimeDir(t), nil), Menu: menu})
	require.NoError(t, err)
	proceed, err := shell.Prepare(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, proceed)

	pid := shell.Supervisor.Status().PID
	require.NotZero(t, pid, "backend should be running: %s", shell.Supervisor.Status().LastError)

	shell.Startup(context.Background(), &recordingSurface{}, func() {})
	shell.DomReady()

	// Tray quit, then the toolkit's shutdown hook, then the process would exit.
	menu.actions.Quit()
	shell.Shutdown()

	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH, "backend %d outlived shutdown", pid)
}

func TestSecondLaunchFocusesFirst(t *testing.T) {
	cfg := testConfig(t)
	dir := runtimeDir(t)

	first, err := NewShell(cfg, Deps{Guard: instance.New(dir, nil)})
	require.NoError(t, err)
	proceed, err := first.Prepare(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, proceed)

	surface := &recordingSurface{}
	first.Startup(context.Background(), surface, func() {})
	first.DomReady()
	first.BeforeClose()
	require.Equal(t, window.Hidden, first.Window.State())
	defer first.Shutdown()

	second, err := NewShell(cfg, Deps{Guard: instance.New(dir, nil)})
	require.NoError(t, err)
	proceed, err = second.Prepare(context.Background(), []string{"gui"})
	require.NoError(t, err)
	assert.False(t, proceed, "second launch must not start a window")

	require.Eventually(t, func() bool {
		return first.Window.State() == window.Visible && surface.count("focus") == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNoAutostart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Autostart = false

	shell, err := NewShell(cfg, Deps{Guard: instance.New(runtimeDir(t), nil)})
	require.NoError(t, err)
	proceed, err := shell.Prepare(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, proceed)
	defer shell.Guard.Release()

	st := shell.Supervisor.Status()
	assert.Equal(t, uint64(0), st.Generation)
	assert.Empty(t, st.LastError)
}

func TestBridgeLogClientDegradesWithoutBackend(t *testing.T) {
	cfg := testConfig(t)
	shell, err := NewShell(cfg, Deps{Guard: instance.New(runtimeDir(t), nil)})
	require.NoError(t, err)

	res := shell.Bridge.LogClient(bridge.ClientLogEntry{Level: "warn", Message: "no backend"})
	assert.True(t, res.Fallback)

	_, err = os.Stat(config.FallbackLogPath(""))
	assert.NoError(t, err)
}

func TestNewShellRejectsBadBridgeURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.BaseURL = "ftp://nope"
	_, err := NewShell(cfg, Deps{})
	assert.Error(t, err)
}
