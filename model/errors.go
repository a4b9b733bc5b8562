package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies backend failures independently of the provider.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "unknown"
	CodeThrottled          ErrorCode = "throttled"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeModelNotFound      ErrorCode = "model-not-found"
	CodeInvalidRequest     ErrorCode = "invalid-request"
	CodeServiceUnavailable ErrorCode = "service-unavailable"
	CodeRequestTimeout     ErrorCode = "request-timeout"
	CodeInvalidResponse    ErrorCode = "invalid-response"
)

// Error is returned by backend implementations. The kernel surfaces it
// unchanged in the context error slot.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("backend error (%s): %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates an Error.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrorFromStatus maps an HTTP status code returned by a provider to an Error.
func ErrorFromStatus(status int, message string, err error) *Error {
	code := CodeUnknown
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = CodeUnauthorized
	case status == http.StatusNotFound:
		code = CodeModelNotFound
	case status == http.StatusTooManyRequests:
		code = CodeThrottled
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = CodeRequestTimeout
	case status >= 500:
		code = CodeServiceUnavailable
	case status >= 400:
		code = CodeInvalidRequest
	}
	return &Error{Code: code, Message: message, StatusCode: status, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case CodeThrottled, CodeServiceUnavailable, CodeRequestTimeout:
		return true
	default:
		return false
	}
}
