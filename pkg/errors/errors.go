// Package errors provides structured error handling for root2data.
//
// Every failure surfaced by the conversion core carries an ErrorType so the
// caller can decide what to do with the file it was converting:
//
//	missing_column    requested column absent from every table (logged, not fatal)
//	ragged_parse      a ragged row could not be parsed back to floats (fatal for the file)
//	unsupported_type  element type an encoder cannot represent natively
//	encoder_io        storage engine failure (always propagates)
//
// Errors wrap their cause, so the standard library errors.Is and errors.As
// keep working through them.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeMissingColumn marks a requested column present in no table
	ErrorTypeMissingColumn ErrorType = "missing_column"
	// ErrorTypeRaggedParse marks a ragged row whose textual form is not numeric
	ErrorTypeRaggedParse ErrorType = "ragged_parse"
	// ErrorTypeUnsupportedType marks an element type with no native encoding
	ErrorTypeUnsupportedType ErrorType = "unsupported_type"
	// ErrorTypeEncoderIO marks a storage engine failure while writing or reading an artifact
	ErrorTypeEncoderIO ErrorType = "encoder_io"
	// ErrorTypeSource marks a failure opening or reading the input file
	ErrorTypeSource ErrorType = "source"
	// ErrorTypeValidation represents validation errors (row counts, duplicate names)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFile represents file system errors outside the storage engines
	ErrorTypeFile ErrorType = "file"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, errType, fmt.Sprintf(format, args...))
	if wrapped.Stack == nil {
		wrapped.Stack = captureStack(2)
	}
	return wrapped
}

// IsType reports whether any error in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// TypeOf returns the outermost ErrorType in err's chain, or "" if none
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// TypeOr returns TypeOf(err), or fallback when err carries no ErrorType
func TypeOr(err error, fallback ErrorType) ErrorType {
	if t := TypeOf(err); t != "" {
		return t
	}
	return fallback
}

// Join is errors.Join, re-exported so callers need only this package
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
