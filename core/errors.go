package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a core error.
type ErrorKind string

const (
	KindUnknown                     ErrorKind = "UNKNOWN_ERROR"
	KindInvalidFunctionDescription  ErrorKind = "INVALID_FUNCTION_DESCRIPTION"
	KindFunctionTypeNotSupported    ErrorKind = "FUNCTION_TYPE_NOT_SUPPORTED"
	KindDuplicateFunction           ErrorKind = "DUPLICATE_FUNCTION"
	KindFunctionNotAvailable        ErrorKind = "FUNCTION_NOT_AVAILABLE"
	KindFunctionInvokeError         ErrorKind = "FUNCTION_INVOKE_ERROR"
	KindInvalidRequest              ErrorKind = "INVALID_REQUEST"
	KindCanceled                    ErrorKind = "CANCELED"
	KindBackendNotFound             ErrorKind = "BACKEND_NOT_FOUND"
	KindInvalidBackendConfiguration ErrorKind = "INVALID_BACKEND_CONFIGURATION"
)

// Error is the typed error used by the registry, the function adapters and
// the kernel. Construction time errors (unsupported function shape,
// duplicate registration) and invocation errors share this type and are
// told apart by Kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError creates an Error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Errorf creates an Error with a formatted message and no cause.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
