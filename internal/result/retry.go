package result

import (
	"context"
	"time"
)

// RetryOptions configures Retry's exponential backoff.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Retry runs step repeatedly until it succeeds, isRetryable returns false
// for the failure, or MaxAttempts is exhausted. Delay between attempts
// doubles each time starting from BaseDelay (full jitter is not applied;
// callers needing it should wrap BaseDelay themselves).
func Retry[T any](ctx context.Context, step func(context.Context) Result[T], isRetryable func(error) bool, opts RetryOptions) Result[T] {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	var last Result[T]
	delay := opts.BaseDelay
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Err[T](ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
		last = step(ctx)
		if last.IsOk() {
			return last
		}
		if isRetryable != nil && !isRetryable(last.Error()) {
			return last
		}
	}
	return last
}
