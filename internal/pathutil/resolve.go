// Package pathutil resolves user-supplied paths from shell.conf and flags.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand turns a configured path into an absolute one. A leading ~ is the
// home directory and $VAR references are expanded. A bare name with no
// separator, such as "python3", is returned unchanged so exec can look it
// up on PATH. Empty stays empty.
func Expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	path = os.ExpandEnv(path)

	// Expand ~ to home directory
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}

	if !strings.ContainsAny(path, `/\`) {
		return path, nil
	}
	return filepath.Abs(path)
}

// MustExpand is Expand that falls back to the input on error.
func MustExpand(path string) string {
	resolved, err := Expand(path)
	if err != nil {
		return path
	}
	return resolved
}
