package system

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can act on it without parsing
// messages.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindExecutionFailure  ErrorKind = "capability_execution_failure"
	KindUnavailable       ErrorKind = "capability_unavailable"
	KindTimeout           ErrorKind = "capability_timeout"
	KindCanceled          ErrorKind = "canceled"
	KindResourceAccess    ErrorKind = "resource_access_failure"
	KindMalformedInput    ErrorKind = "malformed_input"
	KindConflictingState  ErrorKind = "conflicting_state"
	KindIntegrityMismatch ErrorKind = "integrity_mismatch"
)

// Error is the typed failure returned by every component.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed error
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// ResourceError wraps a filesystem or device namespace failure
func ResourceError(op string, err error) *Error {
	return &Error{Kind: KindResourceAccess, Op: op, Err: err}
}

// MalformedInput reports a caller-supplied value that cannot be used
func MalformedInput(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindMalformedInput, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindResourceAccess
}
