// Package testutil provides testing utilities for sheetdb
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/sheetdb/pkg/auth"
	"github.com/ajitpratap0/sheetdb/pkg/clients"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout that is
// canceled when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// NoSleep is a backoff sleep that returns immediately unless ctx is done.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// NewTransport returns a transport for creds that logs to the test output
// and retries without waiting.
func NewTransport(t *testing.T, creds auth.CredentialSource, opts ...clients.TransportOption) *clients.Transport {
	t.Helper()
	opts = append([]clients.TransportOption{
		clients.WithLogger(TestLogger(t)),
		clients.WithSleep(NoSleep),
	}, opts...)
	return clients.NewTransport(creds, opts...)
}
