// Package retry provides the bounded polling and retry primitives shared
// by the bridge executors: a deadline-based poll loop with a fixed tick
// cadence, and a small bounded retry for transient broadcast failures.
package retry

import (
	"context"
	"errors"
	"time"
)

var ErrTimeout = errors.New("poll deadline exceeded")

// Poll invokes fn every interval until fn reports done, the timeout
// elapses (ErrTimeout), fn returns an error, or ctx is cancelled. onTick,
// when set, runs before every attempt with elapsed and remaining time so
// callers can report progress on a defined cadence.
func Poll(
	ctx context.Context,
	interval, timeout time.Duration,
	onTick func(elapsed, remaining time.Duration),
	fn func(ctx context.Context) (done bool, err error),
) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if onTick != nil {
			onTick(timeout-remaining, remaining)
		}

		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Until(deadline) <= interval {
			return ErrTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Do runs fn up to attempts times with a fixed backoff between tries.
// A non-nil retryable predicate can stop the loop early for errors that
// must not be retried (nonce conflicts and the like). The last error is
// returned when every attempt fails.
func Do(ctx context.Context, attempts int, backoff time.Duration, retryable func(error) bool, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
