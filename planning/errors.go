package planning

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a planning error.
type ErrorKind string

const (
	KindUnknown          ErrorKind = "UNKNOWN_ERROR"
	KindInvalidPlan      ErrorKind = "INVALID_PLAN"
	KindInvalidGoal      ErrorKind = "INVALID_GOAL"
	KindCreatePlanError  ErrorKind = "CREATE_PLAN_ERROR"
	KindExecutePlanError ErrorKind = "EXECUTE_PLAN_ERROR"
)

// Error is returned by planner operations.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err wraps a planning *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
