package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrSpawn matches every SpawnError.
	ErrSpawn = errors.New("backend spawn failed")

	// ErrTermination matches every TerminationError.
	ErrTermination = errors.New("backend termination failed")
)

// SpawnError records a backend executable that was missing or could not run.
// It is logged and kept in Status, never returned from Start.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start backend %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

// TerminationError records a kill attempt that failed. It is never retried.
type TerminationError struct {
	PID int
	Err error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("failed to terminate backend pid %d: %v", e.PID, e.Err)
}

func (e *TerminationError) Unwrap() error { return e.Err }

func (e *TerminationError) Is(target error) bool { return target == ErrTermination }
