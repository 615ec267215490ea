package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"eventease/internal/domain"
)

// RetryPolicy bounds how store operations failing with domain.ErrTransient are retried.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when a service is built without an explicit policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// retryTransient runs fn until it succeeds, fails permanently, or the policy is
// exhausted. Only errors wrapping domain.ErrTransient are retried.
func retryTransient(ctx context.Context, logger *slog.Logger, policy RetryPolicy, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !errors.Is(err, domain.ErrTransient) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WarnContext(ctx, "retrying store operation", "op", op, "err", err, "backoff", next)
		}),
	)
	return err
}
