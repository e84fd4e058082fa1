// Package errors defines the error taxonomy shared by every package in
// acstore. Callers should not switch on error strings; use the Kind
// predicates below instead.
package errors

import (
	"fmt"

	stderrors "errors"
)

// Kind classifies an Error by the layer that raised it rather than by its
// concrete Go type. Multiple packages return *Error values carrying the same
// Kind.
type Kind int

const (
	// Internal indicates an unexpected, unclassified failure.
	Internal Kind = iota

	// IO indicates the store is closed when open was required, a backend
	// read/write failed, an on-disk format is incompatible, an identifier
	// has an unsupported shape, a record referenced by update is missing,
	// an unknown type was used with a backend that rejects unknown types,
	// or a table/bucket already exists.
	IO

	// Parse indicates a definitions file or filter expression could not be
	// parsed.
	Parse

	// Key indicates a registry insert collided with an existing name, or a
	// registry delete targeted a name that is not present.
	Key

	// Value indicates a required argument was missing, or a schema
	// referenced an unknown logical type.
	Value
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case Parse:
		return "parse"
	case Key:
		return "key"
	case Value:
		return "value"
	default:
		return "internal"
	}
}

// Error is the error type returned by every acstore package.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acstore error (%s): %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("acstore error (%s): %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through the wrapper to Err.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, ignoring the
// message and cause, so stderrors.Is(err, &Error{Kind: IO}) matches any
// IO-kind error.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// IOErrorf builds an IO-kind *Error.
func IOErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: IO, Message: fmt.Sprintf(format, args...)}
}

// WrapIO builds an IO-kind *Error that wraps a lower-level cause so callers
// can still errors.Is/errors.As through it.
func WrapIO(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: IO, Message: fmt.Sprintf(format, args...), Err: err}
}

// ParseErrorf builds a Parse-kind *Error.
func ParseErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: Parse, Message: fmt.Sprintf(format, args...)}
}

// KeyErrorf builds a Key-kind *Error.
func KeyErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: Key, Message: fmt.Sprintf(format, args...)}
}

// ValueErrorf builds a Value-kind *Error.
func ValueErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: Value, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
