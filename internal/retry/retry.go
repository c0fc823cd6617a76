// Package retry provides a small, explicit retry policy decoupled from the
// operations it wraps so attempt counts and backoff can be tested on their own.
package retry

import (
	"context"
	"time"
)

// BackoffFunc returns the delay before the given attempt (1-based; attempt 1
// already failed once).
type BackoffFunc func(attempt int) time.Duration

// Policy bounds an operation to MaxAttempts, sleeping Backoff(attempt)
// between failures.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc

	// sleep is injectable for tests.
	sleep func(time.Duration)
}

// NewPolicy builds a policy with the given attempt bound and backoff.
func NewPolicy(maxAttempts int, backoff BackoffFunc) Policy {
	return Policy{MaxAttempts: maxAttempts, Backoff: backoff, sleep: time.Sleep}
}

// Exponential doubles the base delay on every attempt: base, 2*base, 4*base...
func Exponential(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
		}
		return d
	}
}

// Do runs fn until it succeeds, the attempt bound is hit, or ctx is done.
// It returns the last error when all attempts fail.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt < p.MaxAttempts && p.Backoff != nil {
			sleep(p.Backoff(attempt))
		}
	}
	return lastErr
}
