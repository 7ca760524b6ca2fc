package utils

import (
	"context"
	"fmt"
	"time"
)

// WithRetry calls fn up to attempts times with exponential backoff between
// tries, returning the first success or the last error. Retry policy lives
// here rather than inline so every retry-then-fallback path in the pipeline
// behaves the same way.
func WithRetry[T any](ctx context.Context, attempts int, baseDelay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(baseDelay * time.Duration(1<<(attempt-1))):
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// WithRetryFallback is WithRetry with a fallback value instead of an error:
// when all attempts fail, fallback() supplies the result and the last error is
// reported alongside it.
func WithRetryFallback[T any](ctx context.Context, attempts int, baseDelay time.Duration, fn func(context.Context) (T, error), fallback func() T) (T, error) {
	result, err := WithRetry(ctx, attempts, baseDelay, fn)
	if err != nil {
		return fallback(), err
	}
	return result, nil
}
