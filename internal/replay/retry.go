package replay

import (
	"context"
	"time"
)

// Replaying a journal can stall for minutes on a slow sink; the backoff is
// capped so a long outage does not push the wait into hours.
const maxRetryDelay = 30 * time.Second

// withRetry runs fn until it succeeds or maxRetries attempts have failed,
// doubling the wait between attempts up to maxRetryDelay. Cancelling the
// context aborts the wait.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
