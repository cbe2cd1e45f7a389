package pipeline

import (
	"context"
	"time"
)

// runWithRetry runs fn up to maxAttempts times with a fixed delay between
// attempts. The delay is a plain timer suspension, not a backoff; every
// failure kind is retryable here, classification matters only to the caller
// after the final attempt.
//
// Returns nil on the first success, the last error after exhausting attempts,
// or ctx.Err() if the context is cancelled during a wait.
func runWithRetry(ctx context.Context, maxAttempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
	return last
}
