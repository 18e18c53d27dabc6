// Package retry runs an operation a bounded number of times with a fixed
// pause between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how many times an operation is attempted.
type Policy struct {
	// MaxAttempts is the total number of tries. Values below one mean one.
	MaxAttempts int
	// Delay is the pause between consecutive attempts.
	Delay time.Duration
	// Notify, when set, is called after each failed attempt that will be
	// retried.
	Notify func(err error, wait time.Duration)
}

// Do calls op until it succeeds, returns a permanent error, the attempts
// are exhausted or ctx is cancelled. op receives the 1-based attempt number.
// The last error is returned.
func (p Policy) Do(ctx context.Context, op func(attempt int) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	n := 0
	return backoff.RetryNotify(func() error {
		n++
		return op(n)
	}, b, p.Notify)
}

// Permanent wraps err so that Do stops retrying immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
