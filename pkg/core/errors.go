package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error carried across every component boundary.
// All failures are recovered where they surface; none of them crash the
// process.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	Err     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrDevice covers microphone acquisition failures. Never retried
	// automatically; the code distinguishes permission denial from a
	// missing device.
	ErrDevice ErrorType = "device_error"
	// ErrEnvironment means the runtime lacks audio capture capability.
	ErrEnvironment ErrorType = "environment_error"
	// ErrTransport is a channel-level error or unexpected close during an
	// active live session. Forces teardown; no automatic reconnect.
	ErrTransport ErrorType = "transport_error"
	// ErrSubmission means job creation was rejected by the service.
	ErrSubmission ErrorType = "submission_error"
	// ErrPoll means a poll tick's status query failed. Terminal for the job.
	ErrPoll ErrorType = "poll_error"
	// ErrEmptyResult means a job reported done but carried no usable payload.
	ErrEmptyResult ErrorType = "empty_result_error"
	// ErrRequest is any one-shot generation call failure.
	ErrRequest ErrorType = "request_error"
)

// Sub-kind codes for ErrDevice and ErrSubmission.
const (
	CodePermissionDenied  = "permission_denied"
	CodeNotFound          = "not_found"
	CodeInvalidCredential = "invalid_credential"
	CodeGeneric           = "generic"
)

// NewDeviceError creates a device error with one of the device sub-kind codes.
func NewDeviceError(code, message string) *Error {
	return &Error{Type: ErrDevice, Message: message, Code: code}
}

// NewEnvironmentError creates an environment error.
func NewEnvironmentError(message string) *Error {
	return &Error{Type: ErrEnvironment, Message: message}
}

// NewTransportError creates a transport error wrapping the underlying cause.
func NewTransportError(message string, err error) *Error {
	return &Error{Type: ErrTransport, Message: message, Err: err}
}

// NewSubmissionError creates a submission error with one of the submission
// sub-kind codes.
func NewSubmissionError(code, message string) *Error {
	return &Error{Type: ErrSubmission, Message: message, Code: code}
}

// NewPollError creates a poll error wrapping the failed query.
func NewPollError(err error) *Error {
	return &Error{Type: ErrPoll, Message: err.Error(), Err: err}
}

// NewEmptyResultError creates the distinct terminal error for a job that
// finished without a payload.
func NewEmptyResultError() *Error {
	return &Error{Type: ErrEmptyResult, Message: "finished but no result"}
}

// NewRequestError creates a one-shot request error.
func NewRequestError(message string, err error) *Error {
	return &Error{Type: ErrRequest, Message: message, Err: err}
}

// AsError extracts a *Error from err's chain, or wraps err as a request
// error when it carries no canonical type.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Type: ErrRequest, Message: err.Error(), Err: err}
}

// IsType reports whether err's chain contains a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// HasCode reports whether err's chain contains a *Error with the given
// sub-kind code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
