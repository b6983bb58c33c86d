//go:build !windows

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// detach puts the backend in its own session so terminal signals aimed at
// the shell do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (setsid)
	}
}

// killTree kills the backend's whole process group. Setsid made the
// backend the group leader, so -pid reaches its workers too.
func killTree(p *os.Process) error {
	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		// Group already gone; make sure the leader is too.
		return p.Kill()
	}
	return err
}
