// Package retry runs operations against external backends with exponential
// backoff.
//
// Only errors marked with [Transient] are retried; everything else is
// returned on the first failure. The ledger and publishing backends wrap
// network errors this way so a brief Redis or MongoDB hiccup does not fail
// a token.
package retry

import (
	"context"
	"errors"
	"time"
)

// Defaults used by [Backoff].
const (
	DefaultAttempts = 3
	DefaultDelay    = 100 * time.Millisecond
)

// TransientError marks an error as worth another attempt.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so that [Do] retries it. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err or anything it wraps is a [TransientError].
func IsTransient(err error) bool {
	return errors.As(err, new(*TransientError))
}

// Do executes fn up to attempts times, doubling delay after each transient
// failure. It returns the last error, unwrapped from its TransientError, or
// ctx.Err() if the context ends while waiting.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	var te *TransientError
	if errors.As(lastErr, &te) {
		return te.Err
	}
	return lastErr
}

// Backoff is [Do] with DefaultAttempts and DefaultDelay.
func Backoff(ctx context.Context, fn func() error) error {
	return Do(ctx, DefaultAttempts, DefaultDelay, fn)
}
