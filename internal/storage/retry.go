package storage

import (
	"context"
	"errors"
	"time"
)

// Default retry configuration for readers.
const (
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 100 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
	DefaultBackoffMult = 2.0
)

// RetryPolicy bounds retries of one read.
type RetryPolicy struct {
	MaxRetries  int
	RetryDelay  time.Duration
	MaxDelay    time.Duration
	BackoffMult float64

	// OnRetry is called before each retry. Optional.
	OnRetry func(op string, attempt int, err error)
}

// DefaultRetryPolicy returns the default policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		MaxDelay:    DefaultMaxDelay,
		BackoffMult: DefaultBackoffMult,
	}
}

// Do runs fn with exponential backoff while retryable reports true.
// The result is wrapped as ErrTransientIO when retries run out and as
// ErrPersistentIO when the failure is not retryable. Caller cancellation is
// returned as is.
func (p RetryPolicy) Do(ctx context.Context, op string, retryable func(error) bool, fn func(ctx context.Context) error) error {
	delay := p.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if p.OnRetry != nil {
				p.OnRetry(op, attempt, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * p.BackoffMult)
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !retryable(err) {
			return Persistent(op, err)
		}
		lastErr = err
	}

	return Transient(op, lastErr)
}
