package bridge

import (
	"errors"
	"fmt"
)

// ErrBackend matches every error produced by a bridge operation reaching
// (or failing to reach) the backend.
var ErrBackend = errors.New("backend request failed")

// ErrUnknownOperation is returned when an operation name is not in the route table.
var ErrUnknownOperation = errors.New("unknown bridge operation")

// RequestFailed is a non-success HTTP status from the backend. Error returns
// the response body verbatim so the UI can show the backend's own message.
type RequestFailed struct {
	Operation string
	Status    int
	Body      string
}

func (e *RequestFailed) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (e *RequestFailed) Is(target error) bool {
	return target == ErrBackend
}

// Unreachable is a network-level failure reaching the backend.
type Unreachable struct {
	Operation string
	Err       error
}

func (e *Unreachable) Error() string {
	return fmt.Sprintf("backend unreachable (%s): %v", e.Operation, e.Err)
}

func (e *Unreachable) Unwrap() error {
	return e.Err
}

func (e *Unreachable) Is(target error) bool {
	return target == ErrBackend
}

// IsUnreachable reports whether err came from a network-level failure.
func IsUnreachable(err error) bool {
	var u *Unreachable
	return errors.As(err, &u)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var rf *RequestFailed
	if errors.As(err, &rf) {
		return rf.Status
	}
	return 0
}
