package fetch

import (
	"context"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Linear makes the n-th wait InitialDelay*(n+1) instead of growing by BackoffFactor.
	Linear bool
}

// DefaultRetryConfig returns the base policy for candidate URLs: two retries
// with a short linear backoff, each wait capped at MaxDelay. Client
// overrides the attempts and initial delay from its FetchConfig.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 300 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Linear:       true,
	}
}

// Delay returns the wait before retry number attempt+1.
func (c RetryConfig) Delay(attempt int) time.Duration {
	var d time.Duration
	if c.Linear {
		d = c.InitialDelay * time.Duration(attempt+1)
	} else {
		d = c.InitialDelay
		for i := 0; i < attempt; i++ {
			d = time.Duration(float64(d) * c.BackoffFactor)
		}
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// RetryWithCheck executes fn with retry, allowing custom retry decision.
// A wait that would outlast the context deadline is not started; the last
// error is returned instead.
func RetryWithCheck[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(attempt int) (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	var lastErr error
	var zero T

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !shouldRetry(err) {
			break
		}

		// Don't wait after the last attempt
		if attempt == attempts-1 {
			break
		}

		delay := cfg.Delay(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= delay {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
