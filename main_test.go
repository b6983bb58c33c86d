package main

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"aurora"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestIsCLIMode(t *testing.T) {
	t.Setenv("DISPLAY", ":0")

	tests := []struct {
		args []string
		cli  bool
	}{
		{nil, false},
		{[]string{"--hidden"}, false},
		{[]string{"gui", "--hidden"}, false},
		{[]string{"--gui", "bridge"}, false},
		{[]string{"bridge", "ping"}, true},
		{[]string{"--cli"}, true},
		{[]string{"--help"}, true},
		{[]string{"version"}, true},
	}

	for _, tt := range tests {
		withArgs(t, tt.args...)
		assert.Equal(t, tt.cli, isCLIMode(), "args %v", tt.args)
	}
}

func TestIsCLIModeWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	withArgs(t)

	if runtime.GOOS == "linux" {
		assert.True(t, isCLIMode())
	}
}

func TestGUIArgs(t *testing.T) {
	assert.Equal(t, []string{"aurora", "gui"}, guiArgs([]string{"aurora"}))
	assert.Equal(t, []string{"aurora", "gui", "--hidden"}, guiArgs([]string{"aurora", "--gui", "--hidden"}))
	assert.Equal(t, []string{"aurora", "gui", "--debug"}, guiArgs([]string{"aurora", "gui", "--debug"}))
}
