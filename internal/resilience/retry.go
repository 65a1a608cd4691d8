package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy combines a breaker with bounded retries for calls to one dependency.
type Policy struct {
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	// Timeout bounds each attempt when positive.
	Timeout time.Duration
	// Permanent marks errors that are answers rather than failures. They are
	// returned at once and count as a success for the breaker.
	Permanent func(error) bool
}

// Call runs fn under p. Transient errors are retried with exponential backoff until
// the attempts run out, the context ends or the breaker opens.
func Call[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if p.Breaker != nil && !p.Breaker.Allow(ctx) {
			if lastErr != nil {
				return zero, errors.Join(ErrOpenCircuit, lastErr)
			}
			return zero, ErrOpenCircuit
		}
		v, err := callOnce(ctx, p.Timeout, fn)
		if err == nil || (p.Permanent != nil && p.Permanent(err)) {
			p.report(ctx, true)
			return v, err
		}
		p.report(ctx, false)
		lastErr = err
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		if retryAttempts != nil && p.Breaker != nil {
			retryAttempts.WithLabelValues(p.Breaker.cfg.Target).Inc()
		}
		timer := time.NewTimer(Backoff(p.BaseBackoff, attempt, p.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func callOnce[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (p Policy) report(ctx context.Context, success bool) {
	if p.Breaker != nil {
		p.Breaker.Report(ctx, success)
	}
}

// Backoff returns the exponential delay before retry number attempt. jitterPct spreads
// it by up to that fraction in either direction.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}
