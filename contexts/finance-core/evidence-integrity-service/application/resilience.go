package application

import (
	"context"
	"errors"
	"time"

	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	"oddlybrilliant/internal/shared/resilience"
)

// UpstreamPolicy bounds every I/O call made by the packager and verifier.
type UpstreamPolicy struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

func (p UpstreamPolicy) retry() resilience.RetryPolicy {
	attempts := p.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return resilience.RetryPolicy{
		Attempts: attempts,
		Backoff:  p.RetryBackoff,
		Retryable: func(err error) bool {
			return !errors.Is(err, domainerrors.ErrNotFound) &&
				!errors.Is(err, domainerrors.ErrInvalidRequest) &&
				!errors.Is(err, domainerrors.ErrConflict)
		},
	}
}

func (p UpstreamPolicy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return 5 * time.Second
	}
	return p.Timeout
}

func call[T any](ctx context.Context, policy UpstreamPolicy, fn func(context.Context) (T, error)) (T, error) {
	return resilience.Call(ctx, policy.retry(), policy.timeout(), fn)
}

func run(ctx context.Context, policy UpstreamPolicy, fn func(context.Context) error) error {
	_, err := call(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
