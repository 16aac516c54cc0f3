package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"ict-ledger/interfaces"
)

// retryConflicts re-runs a whole transaction while it fails with a
// concurrency conflict. Any other error stops immediately.
func retryConflicts[T any](ctx context.Context, maxTries int, op func() (T, error)) (T, error) {
	if maxTries < 1 {
		maxTries = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	res, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !interfaces.IsKind(err, interfaces.KindConcurrencyConflict) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(maxTries)))

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}
