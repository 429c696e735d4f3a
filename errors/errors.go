// Package errors provides the ambient error type used across reflexdp.
//
// It follows the shape used throughout the xray-core proxy stack: an error
// carries a message, an optional wrapped cause, and a severity. Severity
// lets a caller decide whether an error is worth logging loudly (AtError),
// quietly (AtWarning/AtDebug), or not at all, without needing a separate
// logging call at every site that builds one.
package errors

import (
	"errors"
	"fmt"
)

// Severity classifies how noteworthy an error is. The zero value is
// Unspecified, which Logger implementations should treat as Warning.
type Severity uint8

const (
	SeverityUnspecified Severity = iota
	SeverityDebug
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unspecified"
	}
}

// Kind is an optional application-defined tag identifying the specific
// cause of an error (e.g. "bad padding", "hash mismatch", "otp replay").
// Callers use IsKind to branch on it without string matching.
type Kind string

// Error is the ambient error type. It is comparable to nil through the
// normal error interface and supports errors.Is/errors.As via Unwrap.
type Error struct {
	Msg      string
	Inner    error
	Severity Severity
	Kind     Kind
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Inner == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Inner.Error()
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.Inner }

// New starts building an error with the given message.
func New(msg string) *Error {
	return &Error{Msg: msg}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Base attaches a wrapped cause and returns the receiver for chaining.
func (e *Error) Base(cause error) *Error {
	e.Inner = cause
	return e
}

// WithKind tags the error with a Kind and returns the receiver for chaining.
func (e *Error) WithKind(k Kind) *Error {
	e.Kind = k
	return e
}

// AtDebug/AtWarning/AtError set severity and return the receiver for chaining.
func (e *Error) AtDebug() *Error   { e.Severity = SeverityDebug; return e }
func (e *Error) AtWarning() *Error { e.Severity = SeverityWarning; return e }
func (e *Error) AtError() *Error   { e.Severity = SeverityError; return e }

// IsKind reports whether err (or something it wraps) carries the given Kind.
func IsKind(err error, k Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == k {
			return true
		}
		err = e.Inner
	}
	return false
}

// SeverityOf extracts the severity of err, defaulting to SeverityWarning if
// err is not an *Error (i.e. it came from somewhere outside this module).
func SeverityOf(err error) Severity {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity
	}
	return SeverityWarning
}
