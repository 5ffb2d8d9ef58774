package core

import (
	"errors"
	"fmt"
)

// Control signals raised from inside a step execution when an out-of-band
// pause/stop command is discovered mid-flight. The engine catches these
// specifically and converts them into the pause/stop response payload; they
// are never treated as execution failures.
var (
	ErrPlanPaused      = errors.New("plan paused")
	ErrInstanceStopped = errors.New("instance stopped")
)

// ErrorCode classifies engine-level failures for transport mapping.
type ErrorCode string

const (
	CodeInstanceNotFound ErrorCode = "INSTANCE_NOT_FOUND"
	CodePlanNotFound     ErrorCode = "PLAN_NOT_FOUND"
	CodeToolsUnavailable ErrorCode = "TOOLS_UNAVAILABLE"
	CodeBusy             ErrorCode = "BUSY"
	CodeInternal         ErrorCode = "INTERNAL"
)

// Error is a coded engine error. Only NOT_FOUND, TOOLS_UNAVAILABLE and BUSY
// surface as non-200 HTTP statuses; every other outcome is normalized into a
// 200 response with a status field.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// NewError constructs a coded engine error.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the engine error code from err, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
