// Package retry implements the backoff policy shared by every network stage.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Policy defines retry behavior for one stage.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration

	// RateLimitStep is the linear step used when IsRateLimited matches:
	// the wait after attempt n is RateLimitStep*n. Zero disables it.
	RateLimitStep time.Duration
	IsRateLimited func(error) bool
}

// Notify is called before each backoff sleep.
type Notify func(attempt int, err error, wait time.Duration)

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RateLimited reports whether the policy classifies err as throttling.
func (p Policy) RateLimited(err error) bool {
	return p.RateLimitStep > 0 && p.IsRateLimited != nil && p.IsRateLimited(err)
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int, err error) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.RateLimited(err) {
		return p.RateLimitStep * time.Duration(attempt)
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Do runs op until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. The last error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), notify Notify) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := p.Delay(attempt, err)
		if notify != nil {
			notify(attempt, err, wait)
		}
		if err := Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
