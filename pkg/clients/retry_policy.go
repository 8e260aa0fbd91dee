package clients

import (
	"math"
	"math/rand"
	"time"

	"github.com/ajitpratap0/sheetdb/pkg/config"
)

// RetryPolicy defines retry behavior
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, the first one included
	MaxAttempts  int
	InitialDelay time.Duration
	// MaxDelay caps the exponential part of the delay; zero means no cap
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter is the exclusive upper bound of the random delay added to every backoff
	Jitter time.Duration

	random func() float64
}

// NewRetryPolicy creates a retry policy with exponential backoff doubling
// from initialDelay and jitter bounded by initialDelay.
func NewRetryPolicy(maxAttempts int, initialDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		Multiplier:   2.0,
		Jitter:       initialDelay,
	}
}

// DefaultRetryPolicy returns three attempts with 1s, 2s backoff plus up to
// one second of jitter.
func DefaultRetryPolicy() *RetryPolicy {
	return NewRetryPolicy(3, time.Second)
}

// NoRetryPolicy returns a policy that doesn't retry
func NoRetryPolicy() *RetryPolicy {
	return NewRetryPolicy(1, 0)
}

// RetryPolicyFromConfig builds a policy from the reliability settings.
func RetryPolicyFromConfig(cfg config.ReliabilityConfig) *RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.RetryAttempts > 0 {
		p = p.WithMaxAttempts(cfg.RetryAttempts)
	}
	if cfg.RetryDelay > 0 {
		p = p.WithDelay(cfg.RetryDelay, p.MaxDelay)
	}
	if cfg.RetryMultiplier > 0 {
		p.Multiplier = cfg.RetryMultiplier
	}
	if cfg.RetryJitter >= 0 {
		p = p.WithJitter(cfg.RetryJitter)
	}
	return p
}

// Delay returns the wait before the retry that follows attempt (zero-based):
// InitialDelay * Multiplier^attempt + random[0, Jitter).
func (rp *RetryPolicy) Delay(attempt int) time.Duration {
	multiplier := rp.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	delay := float64(rp.InitialDelay) * math.Pow(multiplier, float64(attempt))

	if rp.MaxDelay > 0 && delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}

	if rp.Jitter > 0 {
		random := rp.random
		if random == nil {
			random = rand.Float64
		}
		delay += random() * float64(rp.Jitter)
	}

	return time.Duration(delay)
}

// Attempts returns MaxAttempts, treating anything below one as one.
func (rp *RetryPolicy) Attempts() int {
	if rp.MaxAttempts < 1 {
		return 1
	}
	return rp.MaxAttempts
}

// Clone creates a copy of the retry policy
func (rp *RetryPolicy) Clone() *RetryPolicy {
	c := *rp
	return &c
}

// WithMaxAttempts returns a new policy with updated max attempts
func (rp *RetryPolicy) WithMaxAttempts(attempts int) *RetryPolicy {
	policy := rp.Clone()
	policy.MaxAttempts = attempts
	return policy
}

// WithDelay returns a new policy with updated delays
func (rp *RetryPolicy) WithDelay(initial, max time.Duration) *RetryPolicy {
	policy := rp.Clone()
	policy.InitialDelay = initial
	policy.MaxDelay = max
	return policy
}

// WithJitter returns a new policy with an updated jitter bound
func (rp *RetryPolicy) WithJitter(jitter time.Duration) *RetryPolicy {
	policy := rp.Clone()
	policy.Jitter = jitter
	return policy
}

// WithRandom returns a new policy drawing jitter from random, which must
// return values in [0, 1).
func (rp *RetryPolicy) WithRandom(random func() float64) *RetryPolicy {
	policy := rp.Clone()
	policy.random = random
	return policy
}
