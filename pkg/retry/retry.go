// Package retry runs collaborator calls under a per-attempt timeout with
// optional exponential backoff between attempts.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy configures how often and how patiently a call is retried.
// The zero value makes a single attempt.
type Policy struct {
	// MaxAttempts is the total number of attempts. Values below 1 mean 1.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt. It doubles after
	// every further failure.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts. Zero means no cap.
	MaxBackoff time.Duration

	// Jitter spreads each wait randomly over [0.5, 1.5) of its nominal value.
	Jitter bool
}

// Default is a three-attempt policy suitable for network collaborators.
var Default = Policy{
	MaxAttempts:    3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	Jitter:         true,
}

// Attempts returns the effective number of attempts.
func (p Policy) Attempts() int {
	return max(p.MaxAttempts, 1)
}

// Backoff returns the nominal wait after the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	wait := p.InitialBackoff
	for i := 1; i < attempt && wait > 0; i++ {
		wait *= 2
		if p.MaxBackoff > 0 && wait > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && wait > p.MaxBackoff {
		wait = p.MaxBackoff
	}
	return wait
}

// Do calls fn until it succeeds, the policy is exhausted or ctx is done.
// Each attempt receives a context bounded by timeout; a zero timeout leaves
// the parent deadline in place. The last attempt error is returned.
func Do(ctx context.Context, p Policy, timeout time.Duration, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, p, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for calls that return a result.
func Value[T any](ctx context.Context, p Policy, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)

	attempts := p.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = once(ctx, timeout, fn)
		if err == nil {
			return result, nil
		}
		if attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return result, err
		}

		wait := p.Backoff(attempt)
		if p.Jitter && wait > 0 {
			wait = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}
	}

	return result, err
}

func once[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
