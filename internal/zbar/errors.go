package zbar

import (
	"errors"
	"fmt"
)

var (
	// ErrInitializationFailed is returned when the engine cannot create an instance.
	ErrInitializationFailed = errors.New("zbar: initialization failed")
	// ErrUnsupportedConfig is returned when the engine rejects a setting.
	ErrUnsupportedConfig = errors.New("zbar: unsupported config")
	// ErrDecodeFailed is returned when a decode pass reports an error status.
	ErrDecodeFailed = errors.New("zbar: decode failed")
	// ErrDestroyed is returned by any operation on a destroyed handle.
	ErrDestroyed = errors.New("zbar: handle destroyed")
	// ErrEngineUnavailable means the binary was built without the native engine.
	ErrEngineUnavailable = errors.New("zbar: native engine not linked (built with nozbar or CGO_ENABLED=0)")
)

// Error carries the engine status behind one of the sentinel errors.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Err, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, status int, err error) *Error {
	return &Error{Op: op, Status: status, Err: err}
}
