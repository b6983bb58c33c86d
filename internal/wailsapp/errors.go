// Package wailsapp provides common error definitions.
package wailsapp

import "errors"

var (
	// ErrNoDisplay is returned when GUI mode starts without a display on Linux.
	ErrNoDisplay = errors.New("GUI mode requires a display: DISPLAY and WAYLAND_DISPLAY are not set; use 'aurora backend run' for headless mode")
)
