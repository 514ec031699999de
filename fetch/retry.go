package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRetriesExhausted wraps the last failure once a RetryPolicy gives up.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy bounds how often an operation is repeated after a failure.
type RetryPolicy struct {
	// MaxAttempts counts the first try; values below 1 mean a single attempt
	MaxAttempts int

	// Backoff returns the delay before attempt+1, where attempt starts at 1
	Backoff func(attempt int) time.Duration

	// Retryable reports whether an error warrants another attempt
	Retryable func(error) bool

	// Sleep blocks for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// Notify is called before each repeated attempt
	Notify func(err error, attempt int, next time.Duration)
}

// DefaultRetryPolicy repeats malformed pages up to five attempts with
// exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Backoff:     ExponentialBackoff(time.Second, 2.0, 30*time.Second),
		Retryable:   IsMalformedPage,
	}
}

// ExponentialBackoff returns a backoff that starts at initial, multiplies by
// factor on each attempt and never exceeds max.
func ExponentialBackoff(initial time.Duration, factor float64, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := float64(initial)
		for i := 1; i < attempt; i++ {
			d *= factor
			if max > 0 && time.Duration(d) >= max {
				return max
			}
		}
		return time.Duration(d)
	}
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. Every failure is logged.
func Retry[T any](ctx context.Context, p RetryPolicy, logger *slog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	start := time.Now()
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		retryable := p.Retryable == nil || p.Retryable(err)
		if !retryable {
			return zero, err
		}
		if attempt >= maxAttempts {
			logger.Error("Operation failed after maximum attempts",
				"error_type", errorType(err),
				"error", err,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"elapsed", time.Since(start),
			)
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		var next time.Duration
		if p.Backoff != nil {
			next = p.Backoff(attempt)
		}
		logger.Warn("Request failed, will retry",
			"error_type", errorType(err),
			"error", err,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"elapsed", time.Since(start),
			"next_interval", next,
		)
		if p.Notify != nil {
			p.Notify(err, attempt, next)
		}
		if err := sleep(ctx, next); err != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// errorType names the innermost wrapped error's type.
func errorType(err error) string {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return fmt.Sprintf("%T", err)
		}
		err = inner
	}
}
