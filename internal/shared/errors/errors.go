// Package errors provides centralized error definitions and error handling
// utilities for the launcher backend. It defines the lifecycle error
// taxonomy, structured error types with context wrapping, and classification
// helpers.
//
// # Error Types
//
// Sentinel errors cover the taxonomy shared by every lifecycle operation:
//   - ErrNotFound: application or resource unknown
//   - ErrInstanceNotFound: orchestrator operation on an unknown instance id
//   - ErrPermissionDenied: the OS or agent refused the operation
//   - ErrTimeout: the operation exceeded its deadline
//   - ErrInvalidHandle: a window handle went stale
//   - ErrInvalidTransition: a state change the transition table rejects
//   - ErrAlreadyRunning: dedup found a live instance
//   - ErrUnavailable: the window agent or emulator host is unreachable
//   - ErrUnknown: unclassified failure
//
// Structured errors carry operation context:
//   - LaunchError: launch failures (no instance is registered on failure)
//   - TransitionError: rejected state changes, wraps ErrInvalidTransition
//   - AgentError: window-agent call failures with the mapped sentinel
//
// # Usage
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrInstanceNotFound) { ... }
//
//	var agentErr *errors.AgentError
//	if errors.As(err, &agentErr) { ... }
//
//	if errors.IsRecoverable(err) { ... } // invalid handle / invalid transition
//
// ErrInvalidTransition and ErrInvalidHandle are recovered locally by callers
// (logged, operation reports false) and never treated as fatal.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound indicates an unknown application or resource.
	ErrNotFound = New("not found")
	// ErrInstanceNotFound indicates an operation on an unknown instance id.
	ErrInstanceNotFound = New("instance not found")
	// ErrPermissionDenied indicates the OS or agent refused the operation.
	ErrPermissionDenied = New("permission denied")
	// ErrTimeout indicates the operation exceeded its deadline.
	ErrTimeout = New("operation timed out")
	// ErrInvalidHandle indicates a stale or unknown window handle.
	ErrInvalidHandle = New("invalid window handle")
	// ErrInvalidTransition indicates a state change rejected by the transition table.
	ErrInvalidTransition = New("invalid state transition")
	// ErrAlreadyRunning indicates a live instance already exists for the application.
	ErrAlreadyRunning = New("application already running")
	// ErrUnavailable indicates the window agent or emulator host is unreachable.
	ErrUnavailable = New("window system unavailable")
	// ErrUnknown indicates an unclassified failure.
	ErrUnknown = New("unknown error")
)

// -----------------------------------------------------------------------------
// Structured Errors
// -----------------------------------------------------------------------------

// LaunchError represents a failed launch attempt. A failed launch never
// leaves a partially registered instance behind.
//
// Example:
//
//	err := errors.NewLaunchError("calc", "spawn", baseErr)
//	fmt.Println(err) // `launch failed [app=calc, stage=spawn]: ...`
type LaunchError struct {
	AppID string
	Stage string // resolve, spawn, probe, host
	Err   error
}

// NewLaunchError creates a LaunchError for the given app and stage.
func NewLaunchError(appID, stage string, err error) *LaunchError {
	return &LaunchError{AppID: appID, Stage: stage, Err: err}
}

// Error returns the formatted error message.
func (e *LaunchError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("launch failed [app=%s, stage=%s]: %v", e.AppID, e.Stage, e.Err)
	}
	return fmt.Sprintf("launch failed [app=%s]: %v", e.AppID, e.Err)
}

// Unwrap returns the underlying error.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TransitionError represents a state change rejected by the transition
// table. It always matches ErrInvalidTransition.
type TransitionError struct {
	From string
	To   string
}

// NewTransitionError creates a TransitionError for the rejected pair.
func NewTransitionError(from, to string) *TransitionError {
	return &TransitionError{From: from, To: to}
}

// Error returns the formatted error message.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// Is reports whether target is ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// AgentError represents a failed window-agent call. Err holds the sentinel
// the HTTP status mapped to, so Is() checks work through it.
type AgentError struct {
	Op     string
	Status int // HTTP status, 0 for transport failures
	Err    error
}

// NewAgentError creates an AgentError for the given operation.
func NewAgentError(op string, status int, err error) *AgentError {
	return &AgentError{Op: op, Status: status, Err: err}
}

// Error returns the formatted error message.
func (e *AgentError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("window agent %s failed [status=%d]: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("window agent %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsNotFound reports whether err is an application or instance lookup miss.
func IsNotFound(err error) bool {
	return Is(err, ErrNotFound) || Is(err, ErrInstanceNotFound)
}

// IsInvalidHandle reports whether err means a window handle went stale.
func IsInvalidHandle(err error) bool {
	return Is(err, ErrInvalidHandle)
}

// IsRecoverable reports whether err is recovered locally: the operation
// logs, reports false, and continues instead of failing.
func IsRecoverable(err error) bool {
	return Is(err, ErrInvalidHandle) || Is(err, ErrInvalidTransition)
}

// IsRetryable reports whether the operation may succeed on retry.
func IsRetryable(err error) bool {
	return Is(err, ErrTimeout) || Is(err, ErrUnavailable)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "terminate")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "switch to %s", instID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
