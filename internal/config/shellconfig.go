package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/ini.v1"

	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/pathutil"
)

// ShellConfig is the shell configuration loaded from shell.conf and the
// AURORA_* environment.
//
// Config file location:
//   - Windows: %APPDATA%\Aurora\shell.conf
//   - Unix: ~/.config/aurora/shell.conf
//
// INI format:
//
//	[backend]
//	executable = /opt/aurora/backend/aurora-backend
//	entry_point = server.py
//	autostart = true
//	work_dir =
//
//	[bridge]
//	base_url = http://127.0.0.1:8765
//	timeout_seconds = 0
//	retry_max = 0
//
//	[window]
//	start_hidden = false
//
//	[logging]
//	level = info
//	metrics_addr =
type ShellConfig struct {
	Backend BackendConfig
	Bridge  BridgeConfig
	Window  WindowConfig
	Logging LoggingConfig
}

// BackendConfig describes how the backend process is launched.
type BackendConfig struct {
	// Executable is the backend binary. Empty means the bundled
	// backend/aurora-backend next to the shell executable.
	Executable string `ini:"executable"`

	// EntryPoint is the single positional argument passed to the backend.
	EntryPoint string `ini:"entry_point"`

	// Autostart starts the backend during shell startup.
	// Default: true
	Autostart bool `ini:"autostart"`

	// WorkDir is the backend's working directory. Empty means the
	// executable's directory.
	WorkDir string `ini:"work_dir"`
}

// BridgeConfig holds the bridge transport policy.
type BridgeConfig struct {
	// BaseURL is where the backend's HTTP server listens.
	BaseURL string `ini:"base_url"`

	// TimeoutSeconds is the per-request timeout. 0 disables timeouts.
	TimeoutSeconds int `ini:"timeout_seconds"`

	// Timeout is AURORA_BRIDGE_TIMEOUT at full precision. When non-zero it
	// wins over TimeoutSeconds. Never written to shell.conf.
	Timeout time.Duration `ini:"-"`

	// RetryMax is the number of retries for idempotent GET calls. 0 disables retries.
	RetryMax int `ini:"retry_max"`
}

// WindowConfig holds main window options.
type WindowConfig struct {
	// StartHidden keeps the window in the tray after content is ready.
	StartHidden bool `ini:"start_hidden"`
}

// LoggingConfig holds log and metrics options.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `ini:"level"`

	// MetricsAddr is a loopback host:port serving Prometheus metrics. Empty disables it.
	MetricsAddr string `ini:"metrics_addr"`
}

// EnvOverrides are the environment-level configuration options. Unset
// variables leave the file value untouched.
type EnvOverrides struct {
	BackendExe    string         `envconfig:"BACKEND_EXE"`
	BackendEntry  string         `envconfig:"BACKEND_ENTRY"`
	BridgeURL     string         `envconfig:"BRIDGE_URL"`
	BridgeTimeout *time.Duration `envconfig:"BRIDGE_TIMEOUT"`
	BridgeRetries *int           `envconfig:"BRIDGE_RETRIES"`
	Debug         bool           `envconfig:"DEBUG"`
	MetricsAddr   string         `envconfig:"METRICS_ADDR"`
}

// EnvPrefix is the prefix shared by all environment overrides.
const EnvPrefix = "AURORA"

// ShellConfig validation errors
var (
	ErrInvalidBaseURL     = errors.New("bridge base_url must be an absolute http(s) URL")
	ErrNegativeTimeout    = errors.New("bridge timeout_seconds must not be negative")
	ErrInvalidRetryMax    = errors.New("bridge retry_max must be between 0 and 10")
	ErrInvalidLogLevel    = errors.New("logging level must be one of debug, info, warn, error")
	ErrMissingEntryPoint  = errors.New("backend entry_point is required")
	ErrMetricsNotLoopback = errors.New("logging metrics_addr must bind a loopback address")
)

// NewShellConfig creates a ShellConfig with default values.
func NewShellConfig() *ShellConfig {
	return &ShellConfig{
		Backend: BackendConfig{
			EntryPoint: constants.DefaultBackendEntryPoint,
			Autostart:  true,
		},
		Bridge: BridgeConfig{
			BaseURL:        constants.DefaultBridgeBaseURL,
			TimeoutSeconds: int(constants.DefaultBridgeTimeout / time.Second),
			RetryMax:       constants.DefaultBridgeRetryMax,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads shell.conf (defaults when missing) and applies environment
// overrides. An empty path uses DefaultConfigPath().
func Load(path string) (*ShellConfig, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from shell.conf only.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func LoadFile(path string) (*ShellConfig, error) {
	cfg := NewShellConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load shell.conf: %w", err)
	}

	backend := iniFile.Section("backend")
	cfg.Backend.Executable = backend.Key("executable").String()
	cfg.Backend.EntryPoint = backend.Key("entry_point").MustString(constants.DefaultBackendEntryPoint)
	cfg.Backend.Autostart = backend.Key("autostart").MustBool(true)
	cfg.Backend.WorkDir = backend.Key("work_dir").String()

	bridge := iniFile.Section("bridge")
	cfg.Bridge.BaseURL = bridge.Key("base_url").MustString(constants.DefaultBridgeBaseURL)
	cfg.Bridge.TimeoutSeconds = bridge.Key("timeout_seconds").MustInt(0)
	cfg.Bridge.RetryMax = bridge.Key("retry_max").MustInt(0)

	cfg.Window.StartHidden = iniFile.Section("window").Key("start_hidden").MustBool(false)

	logging := iniFile.Section("logging")
	cfg.Logging.Level = logging.Key("level").MustString("info")
	cfg.Logging.MetricsAddr = logging.Key("metrics_addr").String()

	return cfg, nil
}

// ApplyEnv overlays AURORA_* environment variables onto cfg.
func (cfg *ShellConfig) ApplyEnv() error {
	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}
	cfg.applyOverrides(env)
	return nil
}

func (cfg *ShellConfig) applyOverrides(env EnvOverrides) {
	if env.BackendExe != "" {
		cfg.Backend.Executable = env.BackendExe
	}
	if env.BackendEntry != "" {
		cfg.Backend.EntryPoint = env.BackendEntry
	}
	if env.BridgeURL != "" {
		cfg.Bridge.BaseURL = env.BridgeURL
	}
	if env.BridgeTimeout != nil {
		d := *env.BridgeTimeout
		cfg.Bridge.Timeout = d
		cfg.Bridge.TimeoutSeconds = int(d / time.Second)
		if d < 0 {
			cfg.Bridge.TimeoutSeconds = -1
		}
	}
	if env.BridgeRetries != nil {
		cfg.Bridge.RetryMax = *env.BridgeRetries
	}
	if env.Debug {
		cfg.Logging.Level = "debug"
	}
	if env.MetricsAddr != "" {
		cfg.Logging.MetricsAddr = env.MetricsAddr
	}
}

// Save writes cfg to shell.conf. If path is empty, uses the default path.
// Creates parent directories if they don't exist.
func Save(cfg *ShellConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	backend, err := iniFile.NewSection("backend")
	if err != nil {
		return fmt.Errorf("failed to create backend section: %w", err)
	}
	backend.Key("executable").SetValue(cfg.Backend.Executable)
	backend.Key("entry_point").SetValue(cfg.Backend.EntryPoint)
	backend.Key("autostart").SetValue(fmt.Sprintf("%t", cfg.Backend.Autostart))
	backend.Key("work_dir").SetValue(cfg.Backend.WorkDir)

	bridge, err := iniFile.NewSection("bridge")
	if err != nil {
		return fmt.Errorf("failed to create bridge section: %w", err)
	}
	bridge.Key("base_url").SetValue(cfg.Bridge.BaseURL)
	bridge.Key("timeout_seconds").SetValue(fmt.Sprintf("%d", cfg.Bridge.TimeoutSeconds))
	bridge.Key("retry_max").SetValue(fmt.Sprintf("%d", cfg.Bridge.RetryMax))

	window, err := iniFile.NewSection("window")
	if err != nil {
		return fmt.Errorf("failed to create window section: %w", err)
	}
	window.Key("start_hidden").SetValue(fmt.Sprintf("%t", cfg.Window.StartHidden))

	logging, err := iniFile.NewSection("logging")
	if err != nil {
		return fmt.Errorf("failed to create logging section: %w", err)
	}
	logging.Key("level").SetValue(cfg.Logging.Level)
	logging.Key("metrics_addr").SetValue(cfg.Logging.MetricsAddr)

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks if the configuration is usable.
func (cfg *ShellConfig) Validate() error {
	u, err := url.Parse(cfg.Bridge.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if cfg.Bridge.TimeoutSeconds < 0 || cfg.Bridge.Timeout < 0 {
		return ErrNegativeTimeout
	}
	if cfg.Bridge.RetryMax < 0 || cfg.Bridge.RetryMax > 10 {
		return ErrInvalidRetryMax
	}
	if strings.TrimSpace(cfg.Backend.EntryPoint) == "" {
		return ErrMissingEntryPoint
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if cfg.Logging.MetricsAddr != "" && !isLoopbackAddr(cfg.Logging.MetricsAddr) {
		return ErrMetricsNotLoopback
	}
	return nil
}

// BridgeIsLoopback reports whether the bridge base URL points at this machine.
// A non-loopback backend is allowed but logged, since the bridge carries
// local file paths.
func (cfg *ShellConfig) BridgeIsLoopback() bool {
	u, err := url.Parse(cfg.Bridge.BaseURL)
	if err != nil {
		return false
	}
	return isLoopbackHost(u.Hostname())
}

// BridgeTimeout returns the configured per-request timeout (0 = none).
func (cfg *ShellConfig) BridgeTimeout() time.Duration {
	if cfg.Bridge.Timeout != 0 {
		return cfg.Bridge.Timeout
	}
	return time.Duration(cfg.Bridge.TimeoutSeconds) * time.Second
}

// ResolveBackendExecutable returns the configured backend executable, or the
// bundled one next to the running shell.
func (cfg *ShellConfig) ResolveBackendExecutable() string {
	if cfg.Backend.Executable != "" {
		return pathutil.MustExpand(cfg.Backend.Executable)
	}
	name := constants.BackendExecutableName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	exePath, err := os.Executable()
	if err != nil {
		return filepath.Join(constants.BackendDirName, name)
	}
	return filepath.Join(filepath.Dir(exePath), constants.BackendDirName, name)
}

func isLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	return isLoopbackHost(host)
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
