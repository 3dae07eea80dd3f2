// Package retry provides a bounded exponential-backoff-with-jitter wrapper
// for fallible operations. The policy does not classify errors: every
// failure is retried until the attempt budget is exhausted, and the last
// error is returned unchanged. Callers needing selective retry (for
// example, never retrying a domain rejection) implement their own guard
// inside the retried function.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// jitter bounds. Each delay is scaled by a factor drawn uniformly from
// [jitterLow, jitterHigh] to spread simultaneous retries.
const (
	jitterLow  = 0.85
	jitterHigh = 1.15
)

// OnRetry is invoked after a failed attempt, before the backoff sleep.
type OnRetry func(label string, attempt int, err error, delay time.Duration)

// Policy applies bounded exponential backoff with jitter. Configuration
// is fixed at construction.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	logger  *slog.Logger
	onRetry OnRetry
	randFn  func() float64
	sleepFn func(ctx context.Context, d time.Duration) error
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the structured logger used for attempt warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// WithOnRetry sets a hook invoked after each failed attempt that will be
// retried. Useful for metrics.
func WithOnRetry(fn OnRetry) Option {
	return func(p *Policy) { p.onRetry = fn }
}

// New creates a retry policy. maxAttempts below 1 is treated as 1.
func New(maxAttempts int, baseDelay, maxDelay time.Duration, opts ...Option) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	p := &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		logger:      slog.Default(),
		randFn:      rand.Float64,
		sleepFn:     sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay returns the backoff delay before retry attempt n (1-indexed:
// attempt 1 is the first retry after the initial failure).
// Delay = min(MaxDelay, BaseDelay * 2^(attempt-1)) * jitter.
func (p *Policy) Delay(attempt int) time.Duration {
	base := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if p.MaxDelay > 0 && base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}
	factor := jitterLow + p.randFn()*(jitterHigh-jitterLow)
	return time.Duration(base * factor)
}

// Do runs fn until it succeeds or the attempt budget is exhausted.
// After the final attempt the last error is returned unchanged: no
// wrapping, no classification. label is for observability only.
func (p *Policy) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Delay(attempt)
		p.logger.Warn("operation failed, retrying",
			slog.String("label", label),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", lastErr.Error()),
		)
		if p.onRetry != nil {
			p.onRetry(label, attempt, lastErr, delay)
		}
		if err := p.sleepFn(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

// DoValue runs fn through p and returns its result. This is a
// package-level generic function because Go does not allow generic
// methods on non-generic receiver types.
func DoValue[T any](ctx context.Context, p *Policy, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, label, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// sleepContext sleeps for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
