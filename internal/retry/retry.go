// Package retry provides a small fixed-delay retry policy for upstream calls.
package retry

import (
	"context"
	"errors"
	"time"
)

type stopError struct {
	err error
}

func (s *stopError) Error() string { return s.err.Error() }
func (s *stopError) Unwrap() error { return s.err }

// Stop wraps an error so Do returns it immediately without further
// attempts. The wrapper is stripped before the error is propagated.
func Stop(err error) error {
	return &stopError{err: err}
}

// Do invokes fn up to attempts times, waiting delay between failures.
// attempts below 1 is treated as 1. The error of the final failed attempt
// is propagated unchanged. The wait respects context cancellation.
func Do[T any](ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	var result T
	var err error
	for i := 0; i < attempts; i++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		var stop *stopError
		if errors.As(err, &stop) {
			return result, stop.err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return result, err
		}
	}
	return result, err
}
