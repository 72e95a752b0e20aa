// Package apperr provides coded application errors with an HTTP status
// mapping, used by the transport layer to turn failures into responses.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeMissingField       Code = "MISSING_FIELD"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeTimeout            Code = "TIMEOUT"
	CodeExternalService    Code = "EXTERNAL_SERVICE_ERROR"
	CodeStorage            Code = "STORAGE_ERROR"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is the unified application error.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates an error with an explicit status.
func New(code Code, message string, status int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: status}
}

func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

func MissingField(message string) *Error {
	return New(CodeMissingField, message, http.StatusBadRequest)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func PayloadTooLarge(message string) *Error {
	return New(CodePayloadTooLarge, message, http.StatusRequestEntityTooLarge)
}

// ServiceUnavailable reports a capability that is not configured.
func ServiceUnavailable(service string) *Error {
	return New(CodeServiceUnavailable, fmt.Sprintf("%s is not configured", service), http.StatusServiceUnavailable)
}

// ExternalService wraps a failing upstream capability. The message is the
// cause text, matching what clients of the speech endpoint expect.
func ExternalService(cause error) *Error {
	msg := "external service error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: CodeExternalService, Message: msg, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

func Storage(cause error) *Error {
	return &Error{Code: CodeStorage, Message: "storage error", HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps err to a response status. Unknown errors are 500;
// context deadlines are 504.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if e, ok := As(err); ok && e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err.
func Message(err error) string {
	if e, ok := As(err); ok {
		return e.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request took too long. Please try again."
	}
	return "Internal server error"
}

// CodeOf returns err's code, or CodeInternal.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeInternal
}
