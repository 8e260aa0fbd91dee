package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/sheetdb/pkg/errors"
)

// Example demonstrates basic error creation with store context.
func Example() {
	err := errors.New(errors.ErrorTypeNotFound, "entity not found").
		WithDetail("store", "sheet-123").
		WithDetail("key", "42")

	fmt.Println(err.Error())

	// Output:
	// not_found: entity not found (key=42, store=sheet-123)
}

// ExampleWrap shows how wrapping keeps the cause reachable.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeUnavailable, "batch read failed").
		WithDetail("status", 503)

	fmt.Println(errors.IsRetryable(err))
	fmt.Println(err.Error())

	// Output:
	// true
	// remote_unavailable: batch read failed (status=503): unexpected EOF
}

// ExampleWrapKeep shows that context can be added without losing the category.
func ExampleWrapKeep() {
	inner := errors.New(errors.ErrorTypeAuthMissing, "no bearer token")
	err := errors.WrapKeep(inner, errors.ErrorTypeInternal, "failed to load headers for People")

	fmt.Println(errors.IsType(err, errors.ErrorTypeAuthMissing))

	// Output:
	// true
}
