package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), RetryPolicy{Attempts: 3}, func(context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	var calls int32
	policy := RetryPolicy{
		Attempts:  5,
		Retryable: func(err error) bool { return !errors.Is(err, errPermanent) },
	}
	err := Retry(context.Background(), policy, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errPermanent
	})
	require.ErrorIs(t, err, errPermanent)
	assert.Equal(t, int32(1), calls)
}

func TestRetryReturnsLastErrorWhenBudgetSpent(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, int32(2), calls)
}

func TestTimeoutFailsInsteadOfHanging(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := Timeout(context.Background(), 20*time.Millisecond, func(context.Context) error {
		<-release
		return nil
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTimeoutPassesThroughResult(t *testing.T) {
	err := Timeout(context.Background(), time.Second, func(context.Context) error {
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
}

func TestCallRetriesTimedOutAttempts(t *testing.T) {
	var calls int32
	value, err := Call(context.Background(), RetryPolicy{Attempts: 3}, 20*time.Millisecond,
		func(ctx context.Context) (string, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCallHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Call(ctx, RetryPolicy{Attempts: 3}, time.Second, func(context.Context) (int, error) {
		return 1, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
