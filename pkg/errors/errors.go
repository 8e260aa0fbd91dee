// Package errors provides structured error handling for sheetdb.
//
// Every failure surfaced by the data-access layer is an *Error carrying an
// ErrorType that callers branch on (retry, show "not found", re-authenticate)
// and a set of details naming the store, sheet, range or HTTP status involved.
//
//	err := errors.New(errors.ErrorTypeNotFound, "entity not found").
//		WithDetail("store", storeID).
//		WithDetail("key", key)
//
//	if errors.IsType(err, errors.ErrorTypeNotFound) {
//		// user-facing message
//	}
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeAuthMissing means no bearer credential was available; never retried
	ErrorTypeAuthMissing ErrorType = "auth_missing"
	// ErrorTypeUnavailable means a transient remote failure persisted after all retries
	ErrorTypeUnavailable ErrorType = "remote_unavailable"
	// ErrorTypeRemote represents a non-retryable response from the remote store
	ErrorTypeRemote ErrorType = "remote"
	// ErrorTypeValidation represents a row that failed schema validation
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents an update/delete target absent at lookup time
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeStorage represents local persistence (sync journal) errors
	ErrorTypeStorage ErrorType = "storage"
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

// Error implements the error interface. Details are rendered in key order so
// messages are stable across runs.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	b.WriteString(e.Message)

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
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

// Detail returns a detail value previously attached with WithDetail.
func (e *Error) Detail(key string) (interface{}, bool) {
	v, ok := e.Details[key]
	return v, ok
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

// WrapKeep wraps err with a new message while keeping the type of the
// outermost *Error in its chain, falling back to fallback when err is untyped.
func WrapKeep(err error, fallback ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	errType := fallback
	if t, ok := TypeOf(err); ok {
		errType = t
	}
	return Wrap(err, errType, message)
}

// TypeOf returns the type of the outermost *Error in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Type, true
}

// IsRetryable returns true if the caller may retry the whole operation from
// scratch. Only exhausted transient failures qualify.
func IsRetryable(err error) bool {
	return IsType(err, ErrorTypeUnavailable)
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
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
