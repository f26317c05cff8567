// Package retry centralises the retry behaviour used at the service
// boundaries: one policy object instead of ad-hoc sleep loops scattered at
// call sites.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy defines how an operation is retried: attempt budget, backoff
// schedule and an optional terminal fallback invoked when the budget is
// exhausted.
type Policy struct {
	// MaxAttempts bounds the total number of tries, first call included.
	// Zero or negative means a single attempt.
	MaxAttempts int
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the exponential backoff.
	MaxInterval time.Duration
	// Multiplier grows the interval between consecutive retries.
	Multiplier float64
	// OnExhausted runs once when every attempt failed. It receives the
	// final error and may perform a terminal fallback action.
	OnExhausted func(err error)
}

// DefaultPolicy retries three times with exponential backoff from 100ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
	}
}

func (p Policy) schedule(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		eb.Multiplier = p.Multiplier
	}
	eb.MaxElapsedTime = 0
	var b backoff.BackOff = eb
	if p.MaxAttempts > 1 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	} else {
		b = &backoff.StopBackOff{}
	}
	return backoff.WithContext(b, ctx)
}

// Do runs op under the policy. Retrying stops on success, on context
// cancellation, on a Permanent error, or when MaxAttempts is reached; the
// last error is returned and OnExhausted, when set, has been called.
func Do(ctx context.Context, p Policy, op func() error) error {
	err := backoff.Retry(op, p.schedule(ctx))
	if err != nil && p.OnExhausted != nil {
		p.OnExhausted(err)
	}
	return err
}

// Permanent marks an error as non-retryable.
func Permanent(err error) error { return backoff.Permanent(err) }
