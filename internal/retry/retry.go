package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	// Initial is the wait after the first failure. It doubles per attempt.
	Initial time.Duration
	// Max caps a single wait.
	Max time.Duration
	// Jitter adds up to this fraction of the wait at random.
	Jitter float64
}

// DefaultPolicy suits local file operations racing an editor.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Initial:  10 * time.Millisecond,
		Max:      200 * time.Millisecond,
		Jitter:   0.25,
	}
}

type options struct {
	retryable func(error) bool
	onRetry   func(attempt int, err error, wait time.Duration)
}

// Option configures Do.
type Option func(*options)

// If retries only errors for which fn returns true.
func If(fn func(error) bool) Option {
	return func(o *options) { o.retryable = fn }
}

// OnRetry is called before each wait.
func OnRetry(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(o *options) { o.onRetry = fn }
}

// Do calls fn until it succeeds, returns an error that is not retryable,
// or the policy runs out of attempts.
func Do(ctx context.Context, p Policy, fn func() error, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil {
			return nil
		}
		if o.retryable != nil && !o.retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		wait := Backoff(attempt, p.Initial, p.Max, p.Jitter)
		if o.onRetry != nil {
			o.onRetry(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

// Backoff returns the wait after the given zero-based attempt:
// initial * 2^attempt plus jitter, capped at limit when limit is positive.
func Backoff(attempt int, initial, limit time.Duration, jitter float64) time.Duration {
	wait := float64(initial) * math.Pow(2, float64(attempt))
	if jitter > 0 {
		//nolint:gosec // jitter is not security sensitive
		wait += wait * min(jitter, 1) * rand.Float64()
	}
	if limit > 0 && wait > float64(limit) {
		wait = float64(limit)
	}
	return time.Duration(wait)
}
