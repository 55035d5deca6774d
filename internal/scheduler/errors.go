package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned when work is enqueued after shutdown began.
	ErrNotRunning = errors.New("scheduler: not running")

	// ErrAlreadyShutdown is returned by a second Shutdown.
	ErrAlreadyShutdown = errors.New("scheduler: already shut down")

	// ErrShutdownFromCallback is returned when Shutdown is called on the
	// scheduler goroutine, where joining would deadlock.
	ErrShutdownFromCallback = errors.New("scheduler: shutdown called from scheduler goroutine")
)

// InitErrorCode categorizes initialization failures.
type InitErrorCode string

const (
	// ErrCodeAlreadyInitialized indicates Init was called twice.
	ErrCodeAlreadyInitialized InitErrorCode = "ALREADY_INITIALIZED"

	// ErrCodeStopped indicates Init was called after Shutdown.
	ErrCodeStopped InitErrorCode = "STOPPED"

	// ErrCodeInvalidConfig indicates a non-positive step or lag cap.
	ErrCodeInvalidConfig InitErrorCode = "INVALID_CONFIG"

	// ErrCodeBackendInit indicates the simulation backend failed to start.
	ErrCodeBackendInit InitErrorCode = "BACKEND_INIT"
)

// InitError is a fatal startup failure. The caller is expected to abort.
type InitError struct {
	Code    InitErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *InitError) Unwrap() error {
	return e.Err
}

// IsInitError reports whether err is, or wraps, an *InitError.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}

// InitErrorCodeOf returns the code of a wrapped *InitError, or "".
func InitErrorCodeOf(err error) InitErrorCode {
	var ie *InitError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}
