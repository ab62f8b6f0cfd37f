package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("connection reset")

func fastPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.RetryDelay = time.Millisecond
	p.MaxDelay = 2 * time.Millisecond
	return p
}

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

func TestRetryPolicy_RecoversFromTransient(t *testing.T) {
	var calls, retries int
	p := fastPolicy()
	p.OnRetry = func(string, int, error) { retries++ }

	err := p.Do(context.Background(), "read", isFlaky, func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRetryPolicy_ExhaustedIsTransient(t *testing.T) {
	var calls int
	err := fastPolicy().Do(context.Background(), "read", isFlaky, func(context.Context) error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, ErrTransientIO)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, DefaultMaxRetries+1, calls)
}

func TestRetryPolicy_PersistentNotRetried(t *testing.T) {
	var calls int
	syntaxErr := errors.New("syntax error")

	err := fastPolicy().Do(context.Background(), "read", isFlaky, func(context.Context) error {
		calls++
		return syntaxErr
	})

	assert.ErrorIs(t, err, ErrPersistentIO)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_NotFoundPassesThrough(t *testing.T) {
	err := fastPolicy().Do(context.Background(), "read", isFlaky, func(context.Context) error {
		return ErrNotFound
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPersistentIO)
}

func TestRetryPolicy_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastPolicy().Do(ctx, "read", isFlaky, func(context.Context) error {
		return errFlaky
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTransientIO)
}
