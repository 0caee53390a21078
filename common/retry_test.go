package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteWithRetry_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0

	result, err := ExecuteWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		calls++

		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_RetriesRetryableErrors(t *testing.T) {
	t.Parallel()

	calls := 0

	result, err := ExecuteWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}

		return 7, nil
	},
		WithRetryCount(5),
		WithRetryWaitTime(time.Millisecond),
		WithJitter(false),
		WithIsRetryableError(func(err error) bool { return true }),
	)

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_NonRetryableSurfacesImmediately(t *testing.T) {
	t.Parallel()

	fatal := errors.New("fatal")
	calls := 0

	_, err := ExecuteWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		calls++

		return 0, fatal
	},
		WithRetryCount(5),
		WithRetryWaitTime(time.Millisecond),
		WithIsRetryableError(func(err error) bool { return false }),
	)

	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_ExhaustionWrapsLastError(t *testing.T) {
	t.Parallel()

	transient := errors.New("transient")

	_, err := ExecuteWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		return 0, transient
	},
		WithRetryCount(2),
		WithRetryWaitTime(time.Millisecond),
		WithJitter(false),
		WithIsRetryableError(func(err error) bool { return true }),
	)

	require.ErrorIs(t, err, ErrRetryTimeout)
	require.ErrorIs(t, err, transient)
}

func TestExecuteWithRetry_ContextCancellationStopsWaiting(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(time.Millisecond * 20)
		cancel()
	}()

	started := time.Now()

	_, err := ExecuteWithRetry(ctx, func(ctx context.Context) (int, error) {
		return 0, errors.New("transient")
	},
		WithRetryCount(10),
		WithRetryWaitTime(time.Second*10),
		WithJitter(false),
		WithIsRetryableError(func(err error) bool { return true }),
	)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(started), time.Second)
}

func TestIsContextDoneErr(t *testing.T) {
	t.Parallel()

	assert.True(t, IsContextDoneErr(context.Canceled))
	assert.True(t, IsContextDoneErr(context.DeadlineExceeded))
	assert.False(t, IsContextDoneErr(errors.New("other")))
}
