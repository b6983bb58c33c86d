//go:build windows

package instance

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"

	"github.com/auroradesk/aurora-shell/internal/constants"
)

// mutexLock is a named mutex in the session namespace.
type mutexLock struct {
	handle windows.Handle
}

func (l *mutexLock) release() {
	windows.CloseHandle(l.handle)
}

func acquireLock(_ string) (osLock, bool, error) {
	name, err := windows.UTF16PtrFromString(constants.MutexName)
	if err != nil {
		return nil, false, err
	}

	handle, err := windows.CreateMutex(nil, false, name)
	if handle == 0 {
		return nil, false, fmt.Errorf("failed to create instance mutex: %w", err)
	}
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		windows.CloseHandle(handle)
		return nil, false, nil
	}
	return &mutexLock{handle: handle}, true, nil
}

func listen(_ string) (net.Listener, error) {
	// Owner and SYSTEM only: activations come from the same user.
	cfg := &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;OW)(A;;GA;;;SY)",
		InputBufferSize:    4096,
		OutputBufferSize:   4096,
	}
	return winio.ListenPipe(constants.PipeName, cfg)
}

func dial(ctx context.Context, _ string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, constants.PipeName)
}
