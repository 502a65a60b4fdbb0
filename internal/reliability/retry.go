package reliability

import (
	"context"
	"errors"
	"fmt"
)

// ErrExhausted marks a retry loop that ran out of attempts. The last
// attempt's error is wrapped and reachable through errors.Unwrap.
var ErrExhausted = errors.New("retry budget exhausted")

// Exhausted reports whether err is a retry-exhaustion failure.
func Exhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}

// Retry runs fn up to attempts times and returns the first success. The
// attempts are plain re-invocations with no backoff: the expected failure
// mode is one-off model non-determinism, not a struggling backend.
// Context cancellation stops the loop immediately.
func Retry[T any](ctx context.Context, attempts int, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
