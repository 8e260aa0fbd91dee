// Package clients provides the resilient request path to the remote store.
//
// Every remote call goes through Execute, which checks for a credential,
// applies the rate limit, classifies failures and retries the transient
// ones with exponential backoff and jitter.
package clients

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"

	"github.com/ajitpratap0/sheetdb/pkg/auth"
	"github.com/ajitpratap0/sheetdb/pkg/config"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
	"github.com/ajitpratap0/sheetdb/pkg/metrics"
)

const tracerName = "github.com/ajitpratap0/sheetdb/pkg/clients"

// Transport wraps remote calls with authentication checks, rate limiting
// and retries. It is safe for concurrent use.
type Transport struct {
	creds   auth.CredentialSource
	policy  *RetryPolicy
	limiter *rate.Limiter
	logger  *zap.Logger
	tracer  trace.Tracer
	sleep   func(ctx context.Context, d time.Duration) error
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithLogger sets the transport logger.
func WithLogger(l *zap.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger.OrGlobal(l).With(zap.String("component", "transport"))
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p *RetryPolicy) TransportOption {
	return func(t *Transport) {
		t.policy = p
	}
}

// WithRateLimit allows at most perSec attempts per second, with bursts of burst.
func WithRateLimit(perSec float64, burst int) TransportOption {
	return func(t *Transport) {
		if perSec <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) TransportOption {
	return func(t *Transport) {
		t.sleep = sleep
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tr trace.Tracer) TransportOption {
	return func(t *Transport) {
		t.tracer = tr
	}
}

// NewTransport creates a transport that authenticates with creds.
func NewTransport(creds auth.CredentialSource, opts ...TransportOption) *Transport {
	t := &Transport{
		creds:  creds,
		policy: DefaultRetryPolicy(),
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTransportFromConfig creates a transport from the reliability settings.
func NewTransportFromConfig(creds auth.CredentialSource, cfg *config.BaseConfig, l *zap.Logger) *Transport {
	opts := []TransportOption{
		WithLogger(l),
		WithRetryPolicy(RetryPolicyFromConfig(cfg.Reliability)),
	}
	if cfg.Reliability.IsRateLimited() {
		opts = append(opts, WithRateLimit(cfg.Reliability.RateLimitPerSec, cfg.Reliability.RateBurst))
	}
	return NewTransport(creds, opts...)
}

// Credentials returns the credential source the transport checks.
func (t *Transport) Credentials() auth.CredentialSource {
	return t.creds
}

// Execute runs fn under the transport's retry policy. fn is invoked once per
// attempt and must build a fresh request each time.
//
// Failures are classified as follows: a missing credential fails before any
// attempt; HTTP 429, 500 and 503 and errors without an HTTP status are
// retried; every other status fails immediately as a remote error. When all
// attempts fail with retryable errors, the result is a remote_unavailable
// error carrying the last status and body.
func Execute[T any](ctx context.Context, t *Transport, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	timer := metrics.NewTimer()
	log := logger.WithContext(ctx, t.logger).With(zap.String("request", op))

	ctx, span := t.tracer.Start(ctx, "sheets."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	finish := func(outcome string, err error) {
		metrics.Requests.WithLabelValues(op, outcome).Inc()
		metrics.RequestDuration.WithLabelValues(op).Observe(timer.Seconds())
		span.SetAttributes(attribute.String("sheetdb.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}

	if _, ok := t.creds.CurrentToken(); !ok {
		err := errors.New(errors.ErrorTypeAuthMissing, "no bearer credential available").
			WithDetail("operation", op)
		finish(metrics.OutcomeAuthMissing, err)
		return zero, err
	}

	attempts := t.policy.Attempts()
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt < attempts; attempt++ {
		span.SetAttributes(attribute.Int("sheetdb.attempts", attempt+1))

		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				err = errors.Wrap(err, errors.ErrorTypeInternal, "request canceled while rate limited").
					WithDetail("operation", op)
				finish(metrics.OutcomeCanceled, err)
				return zero, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			finish(metrics.OutcomeSuccess, nil)
			return result, nil
		}

		retryable, status := classify(err)
		if !retryable {
			err = fatalError(err, op, status)
			outcome := metrics.OutcomeFatal
			switch {
			case errors.IsType(err, errors.ErrorTypeAuthMissing):
				outcome = metrics.OutcomeAuthMissing
			case ctx.Err() != nil:
				outcome = metrics.OutcomeCanceled
			}
			finish(outcome, err)
			return zero, err
		}

		lastErr, lastStatus = err, status
		if attempt == attempts-1 {
			break
		}

		delay := t.policy.Delay(attempt)
		metrics.Retries.WithLabelValues(op, statusLabel(status)).Inc()
		log.Warn("retrying remote request",
			zap.Int("attempt", attempt+1),
			zap.Int("status", status),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := t.sleep(ctx, delay); err != nil {
			err = errors.Wrap(err, errors.ErrorTypeInternal, "request canceled during backoff").
				WithDetail("operation", op)
			finish(metrics.OutcomeCanceled, err)
			return zero, err
		}
	}

	err := errors.Wrap(lastErr, errors.ErrorTypeUnavailable, "remote store unavailable").
		WithDetail("operation", op).
		WithDetail("attempts", attempts)
	if lastStatus != 0 {
		err.WithDetail("status", lastStatus)
		if body := responseBody(lastErr); body != "" {
			err.WithDetail("body", body)
		}
	}
	log.Error("remote request failed after retries", zap.Int("attempts", attempts), zap.Error(lastErr))
	finish(metrics.OutcomeExhausted, err)
	return zero, err
}

// classify reports whether err is worth retrying and the HTTP status it
// carried, if any.
func classify(err error) (retryable bool, status int) {
	if errors.IsType(err, errors.ErrorTypeAuthMissing) {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
			return true, apiErr.Code
		default:
			return false, apiErr.Code
		}
	}

	return true, 0
}

func fatalError(err error, op string, status int) error {
	if _, typed := errors.TypeOf(err); typed || status == 0 {
		return errors.WrapKeep(err, errors.ErrorTypeInternal, "remote request failed").
			WithDetail("operation", op)
	}
	e := errors.Wrap(err, errors.ErrorTypeRemote, "remote store rejected the request").
		WithDetail("operation", op).
		WithDetail("status", status)
	if body := responseBody(err); body != "" {
		e.WithDetail("body", body)
	}
	return e
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if e, ok := detailOf(err, "status"); ok {
		if code, ok := e.(int); ok {
			return code
		}
	}
	return 0
}

func detailOf(err error, key string) (interface{}, bool) {
	var e *errors.Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e.Detail(key)
}

func responseBody(err error) string {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return ""
	}
	if apiErr.Body != "" {
		return apiErr.Body
	}
	return apiErr.Message
}

func statusLabel(status int) string {
	if status == 0 {
		return "network"
	}
	return strconv.Itoa(status)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
