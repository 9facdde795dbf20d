// Package strataerrors provides structured error handling for Strata with
// error categorization, key-value context, and stack traces.
//
// Every error surfaced by the library carries an ErrorType so callers can
// branch on the failure category instead of matching message strings:
//
//	col, err := frame.Column[int64](f, "id")
//	if strataerrors.IsType(err, strataerrors.ErrorTypeTypeMismatch) {
//	    // column exists but holds a different value type
//	}
//
// Errors from the storage engine (arrow / parquet) are wrapped with
// ErrorTypeEngine and preserve the original error as the cause, so errors.Is
// and errors.As keep working across the package boundary.
package strataerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType categorizes an error for handling strategies.
type ErrorType string

const (
	// ErrorTypeNotFound indicates a missing column or a missing file.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTypeMismatch indicates the requested value type disagrees with
	// the column's declared type.
	ErrorTypeTypeMismatch ErrorType = "type_mismatch"
	// ErrorTypeLookup indicates a field reference that was never registered
	// in a codec, or a column name with no codec binding.
	ErrorTypeLookup ErrorType = "lookup"
	// ErrorTypeOutOfRange indicates bounds-checked access beyond a column's size.
	ErrorTypeOutOfRange ErrorType = "out_of_range"
	// ErrorTypeEngine indicates an opaque failure surfaced from the storage
	// engine (I/O failure, malformed file, arrow internals).
	ErrorTypeEngine ErrorType = "engine"
	// ErrorTypeValidation indicates invalid caller input (bad operator,
	// mismatched column lengths on write).
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig indicates invalid configuration.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeInternal indicates an internal invariant violation.
	ErrorTypeInternal ErrorType = "internal"
)

// Error is a structured error with a category, optional cause, key-value
// details, and the call stack captured at creation.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is a single frame of the call stack at error creation.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail to the error. Chainable.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates an error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with a type and message, preserving it as the
// cause. If err is already a structured Error its stack is kept. Returns nil
// for a nil input.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existing.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether err (or any error in its chain) is a structured
// Error of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the ErrorType of err, or "" if err is not a structured Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

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
