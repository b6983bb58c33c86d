package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/auroradesk/aurora-shell/internal/constants"
)

// NewRotatingFile returns a lumberjack writer for path with the shared
// rotation policy. The parent directory is created with owner-only access.
func NewRotatingFile(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   constants.LogCompression,
	}, nil
}

// NewShellLogger builds the GUI logger: console plus the rotating
// aurora.log in logDir. If the file cannot be opened the logger still works
// on the console and the error is returned for the caller to report.
func NewShellLogger(logDir string) (*Logger, *lumberjack.Logger, error) {
	file, err := NewRotatingFile(filepath.Join(logDir, constants.ShellLogFileName))
	if err != nil {
		return NewLogger("gui"), nil, err
	}
	return NewLogger("gui", file), file, nil
}
