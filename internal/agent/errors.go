// internal/agent/errors.go
package agent

import "errors"

// ErrorCode is a string type used for structured error reporting from action executors.
type ErrorCode string

const (
	// -- General Execution Errors --
	ErrCodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	ErrCodeUnknownAction     ErrorCode = "UNKNOWN_ACTION_TYPE"
	// -- Browser/DOM Errors --
	ErrCodeElementNotFound ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeTimeoutError    ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNavigationError ErrorCode = "NAVIGATION_ERROR"
	ErrCodeSessionClosed   ErrorCode = "SESSION_CLOSED"
	// -- Internal System Errors --
	ErrCodeExecutorPanic ErrorCode = "EXECUTOR_PANIC"
)

// Invocation-level failures. Anything else returned by Discover or Book is an
// infrastructure failure (browser launch, oracle transport).
var (
	ErrInvalidRequest = errors.New("invalid agent request")
	ErrCourseNotFound = errors.New("course not found or no website available for AI browsing")
	// ErrSessionUnavailable means the browser behind the session could not be
	// used at all. The session is replaced on the next invocation.
	ErrSessionUnavailable = errors.New("browser session unavailable")
)
