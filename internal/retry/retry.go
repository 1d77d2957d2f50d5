// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs an operation under an explicit retry policy. The policy
// decides which errors are worth another attempt; everything else fails fast.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 5 * time.Second
)

// ErrExhausted is returned (wrapping the last error) when every attempt
// allowed by the policy failed with a retryable error.
var ErrExhausted = errors.New("retries exhausted")

// Policy bounds an attempt-with-retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 mean DefaultMaxAttempts.
	MaxAttempts int

	// Delay is the fixed pause before each retry.
	Delay time.Duration

	// Retryable reports whether err warrants another attempt. A nil
	// predicate treats every error as permanent.
	Retryable func(error) bool

	// OnRetry, if set, is called before each pause with the 1-based
	// number of the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the fixed-delay policy used for WebBook requests.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Retryable:   retryable,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. A permanent error is returned as-is after a
// single attempt. Exhaustion returns an error matching ErrExhausted that
// also wraps the last attempt's error. If ctx is cancelled while waiting
// between attempts, Do returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := p.attempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, maxAttempts, lastErr)
}
