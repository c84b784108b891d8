package sched

import (
	"errors"
	"fmt"
)

// ExecError represents a failure detected by the dispatcher while
// driving logical threads.
//
// Exec errors include:
//   - Deadlock: every live thread is blocked and no deadline is pending
//   - Thread panic: a logical thread panicked; the panic value is
//     captured and execution stops
type ExecError struct {
	// Code identifies the error category.
	Code ExecErrorCode

	// Message is a human-readable description.
	Message string

	// Thread names the offending thread, when there is a single one.
	Thread string

	// Details contains additional context, e.g. the await reason of
	// each blocked thread for a deadlock.
	Details map[string]string
}

// ExecErrorCode categorizes dispatcher errors.
type ExecErrorCode string

const (
	// ErrCodeDeadlock indicates all threads are blocked with no pending deadline.
	ErrCodeDeadlock ExecErrorCode = "DEADLOCK_DETECTED"

	// ErrCodeThreadPanic indicates a logical thread panicked.
	ErrCodeThreadPanic ExecErrorCode = "THREAD_PANIC"
)

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Thread != "" {
		return fmt.Sprintf("%s: %s (thread=%s)", e.Code, e.Message, e.Thread)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDeadlock returns true if the error is a deadlock detection error.
// Uses errors.As to handle wrapped errors.
func IsDeadlock(err error) bool {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeDeadlock
	}
	return false
}

// IsThreadPanic returns true if the error is a captured thread panic.
func IsThreadPanic(err error) bool {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeThreadPanic
	}
	return false
}

// CanceledError is returned by cancellable operations when the
// enclosing cancellation scope was cancelled during the wait.
//
// It is a distinguishable error variant, not an interruption: a
// cancellable operation observes it at a predicate re-evaluation and
// propagates it up the call stack. Match with IsCanceled or errors.As.
type CanceledError struct {
	// Scope names the cancelled scope.
	Scope string

	// Reason is the cause supplied to Scope.Cancel, if any.
	Reason string
}

// Error implements the error interface.
func (e *CanceledError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("scope %q canceled: %s", e.Scope, e.Reason)
	}
	return fmt.Sprintf("scope %q canceled", e.Scope)
}

// IsCanceled returns true if the error is a cancellation signal.
// Uses errors.As to handle wrapped errors.
func IsCanceled(err error) bool {
	var ce *CanceledError
	return errors.As(err, &ce)
}
