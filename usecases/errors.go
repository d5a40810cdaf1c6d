package usecases

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes pipeline failures.
type ErrorCode string

const (
	// ErrCodeValidation indicates a malformed request; no ledger row exists.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates an unknown endpoint; no ledger row exists.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeNotWritable indicates the endpoint kind or status rejects
	// commands; no ledger row exists.
	ErrCodeNotWritable ErrorCode = "NOT_WRITABLE"

	// ErrCodeBlocked indicates an interlock stopped the command. The ledger
	// row is terminal `blocked` and an alarm was raised.
	ErrCodeBlocked ErrorCode = "INTERLOCK_BLOCKED"

	// ErrCodeDispatchTimeout indicates the node never confirmed within the
	// dispatch bound. Terminal `failed` with reason "timeout".
	ErrCodeDispatchTimeout ErrorCode = "DISPATCH_TIMEOUT"

	// ErrCodeDispatchFailed indicates delivery failed after the single
	// allowed retry. Terminal `failed`.
	ErrCodeDispatchFailed ErrorCode = "DISPATCH_FAILED"

	// ErrCodeSafetyUnavailable indicates interlock data could not be
	// loaded. Evaluation fails closed: terminal `blocked`.
	ErrCodeSafetyUnavailable ErrorCode = "SAFETY_UNAVAILABLE"
)

// PipelineError is the typed failure surface of the command pipeline.
type PipelineError struct {
	Code        ErrorCode
	Message     string
	CommandID   string
	EndpointID  string
	InterlockID string
}

func (e *PipelineError) Error() string {
	if e.CommandID != "" {
		return fmt.Sprintf("%s: %s (command=%s)", e.Code, e.Message, e.CommandID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsPipelineError unwraps a PipelineError if err carries one.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// HasCode reports whether err is a PipelineError with the given code.
func HasCode(err error, code ErrorCode) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Code == code
}

func newValidationError(format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func newNotFoundError(endpointID string) *PipelineError {
	return &PipelineError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("no endpoint found with id %s", endpointID),
		EndpointID: endpointID,
	}
}

func newNotWritableError(endpointID, detail string) *PipelineError {
	return &PipelineError{
		Code:       ErrCodeNotWritable,
		Message:    detail,
		EndpointID: endpointID,
	}
}
