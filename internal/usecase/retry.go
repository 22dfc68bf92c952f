package usecase

import (
	"context"
	"time"
)

// RetryPolicy controls how the gateway retries a failed fetch.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// retry calls fn up to p.Attempts times, doubling the delay after each failure.
// It returns the last error, or ctx.Err() if the context ends while waiting.
func retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return err
}
