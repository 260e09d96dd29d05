// Package resilience wraps a unit of work with bounded retry and a hard
// timeout. Both wrappers are ctx-aware and compose: Call applies the timeout
// to every attempt and retries around it.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrTimeout = errors.New("operation timed out")

type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// Retryable reports whether err is worth another attempt. Nil retries
	// everything except context cancellation.
	Retryable func(error) bool
}

func (p RetryPolicy) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}
	return p.Attempts
}

func (p RetryPolicy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Retry runs fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx is done. The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= policy.attempts(); attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !policy.retryable(err) || attempt == policy.attempts() {
			return err
		}
		if policy.Backoff > 0 {
			timer := time.NewTimer(policy.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
	return err
}

// Timeout runs fn with a deadline of d. If fn has not returned when the
// deadline passes, Timeout returns ErrTimeout without waiting for it.
func Timeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	_, err := TimeoutValue(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func TimeoutValue[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(callCtx)
		done <- outcome{value: value, err: err}
	}()

	var zero T
	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%w after %s: %w", ErrTimeout, d, out.err)
		}
		return out.value, out.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
	}
}

// Call composes TimeoutValue inside Retry and returns the value of the first
// successful attempt.
func Call[T any](
	ctx context.Context,
	policy RetryPolicy,
	timeout time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	var result T
	err := Retry(ctx, policy, func(ctx context.Context) error {
		value, err := TimeoutValue(ctx, timeout, fn)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
