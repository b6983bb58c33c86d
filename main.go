// Aurora - desktop shell for the local Aurora backend.
//
// - No args + display available → GUI mode
// - No args + no display → CLI help
// - --gui, --hidden → GUI mode
// - --cli → CLI mode (force)
// - CLI subcommands/flags → CLI mode
//
// Build with: wails build (for all platforms)
package main

import (
	"embed"
	"os"
	"runtime"
	"slices"

	"github.com/auroradesk/aurora-shell/internal/cli"
	"github.com/auroradesk/aurora-shell/internal/wailsapp"
)

//go:embed all:frontend/dist
var assets embed.FS

// guiFlags may appear without switching to CLI mode.
var guiFlags = []string{"--gui", "--hidden", "--debug"}

func main() {
	wailsapp.Assets = assets

	if !isCLIMode() {
		// Wails uses its own webview input handling; ibus is unnecessary.
		if runtime.GOOS == "linux" && os.Getenv("GTK_IM_MODULE") == "" {
			os.Setenv("GTK_IM_MODULE", "none")
		}
		os.Args = guiArgs(os.Args)
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// guiArgs rewrites a GUI launch into the 'gui' subcommand.
func guiArgs(args []string) []string {
	out := []string{args[0], "gui"}
	for _, arg := range args[1:] {
		if arg == "--gui" || arg == "gui" {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// isCLIMode determines whether to run in CLI mode based on arguments and environment.
//
// CLI mode when:
// - --cli flag is present (force CLI mode)
// - any subcommand or flag other than the GUI flags is present
// - No display available (DISPLAY/WAYLAND_DISPLAY not set on Linux)
//
// GUI mode when:
// - --gui flag or the gui subcommand is present
// - only GUI flags are present and a display is available
func isCLIMode() bool {
	args := os.Args[1:]

	// Explicit flags
	if slices.Contains(args, "--cli") {
		return true
	}
	if slices.Contains(args, "--gui") || (len(args) > 0 && args[0] == "gui") {
		return false
	}

	for _, arg := range args {
		if !slices.Contains(guiFlags, arg) {
			// Unknown arguments - let CLI handle (might be typos or new commands)
			return true
		}
	}

	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return true // No display, default to CLI
		}
	}
	// On macOS/Windows or Linux with display: default to GUI
	return false
}
