//go:build !windows

package instance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/auroradesk/aurora-shell/internal/constants"
)

// fileLock is an exclusive flock on the lock file.
type fileLock struct {
	file *os.File
	dir  string
}

func (l *fileLock) release() {
	os.Remove(filepath.Join(l.dir, constants.SocketFileName))
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file.Close()
}

func acquireLock(dir string) (osLock, bool, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, false, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	path := filepath.Join(dir, constants.LockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	// Record the holder for diagnostics.
	file.Truncate(0)
	file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)

	return &fileLock{file: file, dir: dir}, true, nil
}

func listen(dir string) (net.Listener, error) {
	path := filepath.Join(dir, constants.SocketFileName)
	// A socket left behind by a crashed holder is stale: we hold the lock now.
	os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0600); err != nil {
		listener.Close()
		return nil, err
	}
	return listener, nil
}

func dial(ctx context.Context, dir string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", filepath.Join(dir, constants.SocketFileName))
}
