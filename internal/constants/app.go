package constants

import (
	"time"
)

// Application identity
const (
	// AppName is the display name used for window titles and the tray tooltip.
	AppName = "Aurora"

	// AppID is the short identifier used for directories, lock files and pipe names.
	AppID = "aurora"

	// WindowTitle is the main window title.
	WindowTitle = "Aurora"
)

// Backend process
const (
	// BackendDirName - directory next to the shell executable holding the bundled backend
	BackendDirName = "backend"

	// BackendExecutableName - bundled backend binary name (".exe" appended on Windows)
	BackendExecutableName = "aurora-backend"

	// DefaultBackendEntryPoint - positional entry-point argument passed to the backend
	DefaultBackendEntryPoint = "server.py"

	// BackendOutputMaxLine - longest single stdout/stderr line captured before truncation (64 KB)
	BackendOutputMaxLine = 64 * 1024

	// BackendStopTimeout - how long shell shutdown waits for stopped backends to exit
	BackendStopTimeout = 5 * time.Second
)

// Bridge
const (
	// DefaultBridgeBaseURL - loopback address the backend binds its HTTP server on
	DefaultBridgeBaseURL = "http://127.0.0.1:8765"

	// DefaultBridgeTimeout - zero means no per-request timeout. A hung backend
	// hangs the caller unless the user configures a timeout.
	DefaultBridgeTimeout = time.Duration(0)

	// DefaultBridgeRetryMax - zero means a single attempt per call
	DefaultBridgeRetryMax = 0

	// BridgeRetryWaitMin / BridgeRetryWaitMax bound the backoff between GET retries
	BridgeRetryWaitMin = 250 * time.Millisecond
	BridgeRetryWaitMax = 2 * time.Second

	// DefaultTailLines - lines requested from /logs/tail when the caller passes <= 0
	DefaultTailLines = 200

	// MaxTailLines - upper clamp for /logs/tail
	MaxTailLines = 5000
)

// Logs
const (
	// FallbackLogRelPath - fallback log location relative to the data directory.
	// Only written when the backend cannot be reached by logClient.
	FallbackLogRelPath = "logs/ui-fallback.log"

	// ShellLogFileName - rotating log for the shell itself
	ShellLogFileName = "aurora.log"

	// BackendLogFileName - rotating log receiving captured backend stdout/stderr
	BackendLogFileName = "backend.log"

	// Rotation settings shared by the shell and backend logs
	LogMaxSizeMB   = 10
	LogMaxBackups  = 5
	LogMaxAgeDays  = 30
	LogCompression = true
)

// Instance guard
const (
	// LockFileName - flock target inside the runtime directory (Unix)
	LockFileName = "aurora.lock"

	// SocketFileName - secondary-launch notification socket (Unix)
	SocketFileName = "aurora.sock"

	// PipeName - secondary-launch notification pipe (Windows)
	PipeName = `\\.\pipe\aurora-shell`

	// MutexName - named mutex held for the lifetime of the primary instance (Windows)
	MutexName = `Local\AuroraShell_SingleInstance`

	// ActivationTimeout - how long a second launch waits for the holder to acknowledge
	ActivationTimeout = 3 * time.Second
)

// Window
const (
	WindowWidth     = 1200
	WindowHeight    = 780
	WindowMinWidth  = 820
	WindowMinHeight = 560
)

// Tray
const (
	// TrayTooltipMaxLen - tooltips longer than this are truncated
	TrayTooltipMaxLen = 120
)

// CLI
const (
	// WaitPollInterval - how often `aurora bridge wait` polls /ping
	WaitPollInterval = 500 * time.Millisecond

	// DefaultWaitTimeout - how long `aurora bridge wait` polls before giving up
	DefaultWaitTimeout = 30 * time.Second
)
