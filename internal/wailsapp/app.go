// Package wailsapp hosts the Aurora shell in a Wails webview: it builds the
// components, runs the window, and binds the bridge as the UI's only
// capability surface.
package wailsapp

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/auroradesk/aurora-shell/internal/config"
	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/logging"
	"github.com/auroradesk/aurora-shell/internal/metrics"
	"github.com/auroradesk/aurora-shell/internal/tray"
	"github.com/auroradesk/aurora-shell/internal/version"
)

// Assets holds the embedded frontend files, passed in from main package.
var Assets embed.FS

// RunOptions are the GUI flags from the command line.
type RunOptions struct {
	ConfigPath string
	Debug      bool
	Hidden     bool
	Args       []string // forwarded to a running instance
}

// runtimeSurface drives the native window through the Wails runtime.
type runtimeSurface struct {
	ctx context.Context
}

func (r runtimeSurface) Show() {
	wruntime.WindowShow(r.ctx)
}

func (r runtimeSurface) Hide() {
	wruntime.WindowHide(r.ctx)
}

func (r runtimeSurface) Focus() {
	wruntime.WindowUnminimise(r.ctx)
	wruntime.WindowShow(r.ctx)
}

// Run launches the desktop shell and blocks until it quits.
func Run(opts RunOptions) error {
	// Check for display on Linux
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return ErrNoDisplay
		}
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.Debug {
		cfg.Logging.Level = "debug"
	}
	if opts.Hidden {
		cfg.Window.StartHidden = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration %s: %w", configPath, err)
	}

	logDir := config.LogDirectory()
	logger, shellLog, logErr := logging.NewShellLogger(logDir)
	logging.SetGlobalLevel(logging.ParseLevel(cfg.Logging.Level))
	if logErr != nil {
		logger.Warn().Err(logErr).Msg("File logging unavailable")
	}
	if shellLog != nil {
		defer shellLog.Close()
	}

	backendLog, err := logging.NewRotatingFile(filepath.Join(logDir, constants.BackendLogFileName))
	if err != nil {
		logger.Warn().Err(err).Msg("Backend output log unavailable")
	}

	deps := Deps{
		Logger:  logger,
		Metrics: metrics.New(),
		Menu:    tray.NewSystrayMenu(),
	}
	if backendLog != nil {
		deps.BackendLog = backendLog
		defer backendLog.Close()
	}

	shell, err := NewShell(cfg, deps)
	if err != nil {
		return err
	}

	proceed, err := shell.Prepare(context.Background(), opts.Args)
	if err != nil {
		return fmt.Errorf("instance check failed: %w", err)
	}
	if !proceed {
		return nil
	}

	logger.Info().
		Str("version", version.Version).
		Str("config", configPath).
		Str("base_url", cfg.Bridge.BaseURL).
		Msg("Starting Aurora")

	err = wails.Run(&options.App{
		Title:     constants.WindowTitle,
		Width:     constants.WindowWidth,
		Height:    constants.WindowHeight,
		MinWidth:  constants.WindowMinWidth,
		MinHeight: constants.WindowMinHeight,
		// Shown by the window controller once content is ready.
		StartHidden: true,
		AssetServer: &assetserver.Options{
			Assets: Assets,
		},
		BackgroundColour: &options.RGBA{R: 15, G: 18, B: 28, A: 1},
		OnStartup: func(ctx context.Context) {
			shell.Startup(ctx, runtimeSurface{ctx: ctx}, func() { wruntime.Quit(ctx) })
		},
		OnDomReady: func(context.Context) {
			shell.DomReady()
		},
		OnBeforeClose: func(context.Context) bool {
			return shell.BeforeClose()
		},
		OnShutdown: func(context.Context) {
			shell.Shutdown()
		},
		Bind: []interface{}{
			shell.Bridge,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   constants.AppName,
				Message: fmt.Sprintf("Version %s", version.Version),
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			// Use bundled WebView2 Fixed Version Runtime if present
			WebviewBrowserPath: getWebView2BrowserPath(),
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			ProgramName:         constants.AppID,
		},
	})

	// Covers error paths where OnShutdown never ran.
	shell.Shutdown()

	if err != nil {
		return fmt.Errorf("wails application error: %w", err)
	}
	return nil
}

// getWebView2BrowserPath returns the path to a bundled WebView2 Fixed Version Runtime.
// Returns empty string to use system-installed WebView2, or path to bundled runtime.
func getWebView2BrowserPath() string {
	if runtime.GOOS != "windows" {
		return ""
	}

	exePath, err := os.Executable()
	if err != nil {
		return ""
	}

	webview2Dir := filepath.Join(filepath.Dir(exePath), "webview2")
	if info, err := os.Stat(webview2Dir); err == nil && info.IsDir() {
		// The Fixed Version Runtime contains msedgewebview2.exe
		if _, err := os.Stat(filepath.Join(webview2Dir, "msedgewebview2.exe")); err == nil {
			return webview2Dir
		}
	}

	return ""
}
