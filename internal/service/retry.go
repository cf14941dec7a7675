package service

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	maxStoreAttempts = 3
	baseBackoff      = 50 * time.Millisecond
	// storeTimeout bounds every store round-trip; expiry surfaces as
	// ErrStoreTimeout (retryable) rather than blocking the request.
	storeTimeout = 5 * time.Second
)

// withStoreRetry calls fn up to maxStoreAttempts times, backing off with
// jittered exponential delays between attempts. Only retryable errors
// (IsRetryable) are re-attempted; validation errors surface immediately.
func withStoreRetry(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxStoreAttempts; i++ {
		if i > 0 {
			// 50-100ms, 100-200ms … full jitter on an exponential base
			base := baseBackoff << uint(i-1)
			wait := base + time.Duration(rand.Int63n(int64(base)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		err := fn(i)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
	}
	return lastErr
}

// withTimeout runs fn under a bounded deadline, mapping deadline expiry to
// ErrStoreTimeout.
func withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	err := fn(tctx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
		return ErrStoreTimeout
	}
	return err
}
