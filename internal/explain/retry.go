package explain

import (
	"context"
	"time"
)

// RetryPolicy bounds retries around one provider call: Attempts total tries
// with linear backoff (try n waits n*Backoff before the next). Expressed as
// a value so call sites can swap schedules without touching the decider.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 2 * time.Second}
}

// Do runs call until it succeeds, attempts are exhausted, or the context is
// canceled. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, call func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.Backoff):
		}
	}
	return lastErr
}
