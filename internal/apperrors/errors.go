// Package apperrors provides coded errors shared across the memory engine.
package apperrors

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown is reported for errors that carry no code.
	CodeUnknown Code = "UNKNOWN"

	// Input validation
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeEmptyEvents     Code = "EMPTY_EVENTS"
	CodeBlankEntity     Code = "BLANK_ENTITY"
	CodeNilFact         Code = "NIL_FACT"
	CodeNilEvent        Code = "NIL_EVENT"
	CodeInvalidFact     Code = "INVALID_FACT"

	// Extraction
	CodeUnsupportedEventKind Code = "UNSUPPORTED_EVENT_KIND"

	// Storage
	CodeNotFound Code = "NOT_FOUND"
	CodeStorage  Code = "STORAGE"
)

// Error is the domain error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsInput reports whether err is a caller input error.
func IsInput(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeEmptyEvents, CodeBlankEntity, CodeNilFact,
		CodeNilEvent, CodeInvalidFact, CodeUnsupportedEventKind:
		return true
	}
	return false
}
