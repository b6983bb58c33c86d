// Package config provides configuration management for the Aurora shell.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/auroradesk/aurora-shell/internal/constants"
)

// ConfigDirectory returns the directory holding shell.conf.
//
// Locations:
//   - Windows: %APPDATA%\Aurora
//   - Unix: $XDG_CONFIG_HOME/aurora or ~/.config/aurora
func ConfigDirectory() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), constants.AppID)
			}
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, constants.AppName)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), constants.AppID)
		}
		return filepath.Join(homeDir, ".config", constants.AppID)
	}
	return filepath.Join(configDir, constants.AppID)
}

// DefaultConfigPath returns the default location of shell.conf.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDirectory(), "shell.conf")
}

// DataDirectory returns the base directory that relative data paths (the
// fallback log) are resolved against. AURORA_DATA_DIR overrides it.
func DataDirectory() string {
	if dir := os.Getenv("AURORA_DATA_DIR"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, constants.AppName)
		}
	}
	return ConfigDirectory()
}

// LogDirectory returns the unified log directory for shell and backend logs.
func LogDirectory() string {
	return filepath.Join(DataDirectory(), "logs")
}

// EnsureLogDirectory creates the log directory if it doesn't exist.
// Uses 0700 permissions to restrict log access to the owner.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}

// FallbackLogPath resolves the fixed relative fallback-log path against dataDir.
// An empty dataDir uses DataDirectory().
func FallbackLogPath(dataDir string) string {
	if dataDir == "" {
		dataDir = DataDirectory()
	}
	return filepath.Join(dataDir, filepath.FromSlash(constants.FallbackLogRelPath))
}

// RuntimeDirectory returns the per-user directory for the instance lock and
// notification socket. XDG_RUNTIME_DIR is preferred because it is cleaned
// on logout, which removes stale sockets.
func RuntimeDirectory() string {
	if runtime.GOOS != "windows" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, constants.AppID)
		}
	}
	return filepath.Join(DataDirectory(), "run")
}
