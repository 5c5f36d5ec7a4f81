// Package resilience provides reusable failure-handling primitives —
// retry with backoff, circuit breaking, hedged requests, and provider
// rate limiting — shared by any component that calls an unreliable
// upstream (language models, tool executors, remote toolboxes).
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/basalt-ai/basalt/core"
)

// RetryPolicy configures Retry's backoff schedule. The zero value is
// normalized to DefaultRetryPolicy by Retry.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         bool

	// RetryableErrors extends core.IsRetryable's default set for this
	// call site; a core.Error whose Code appears here is retried even
	// if core.IsRetryable would otherwise say no.
	RetryableErrors []core.ErrorCode
}

// DefaultRetryPolicy returns the policy used when a zero-value
// RetryPolicy is passed to Retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff == 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff == 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.BackoffFactor == 0 {
		p.BackoffFactor = d.BackoffFactor
	}
	return p
}

func (p RetryPolicy) allows(err error) bool {
	var cerr *core.Error
	if !errors.As(err, &cerr) {
		return false
	}
	if core.IsRetryable(cerr) {
		return true
	}
	for _, code := range p.RetryableErrors {
		if cerr.Code == code {
			return true
		}
	}
	return false
}

// Retry invokes fn until it succeeds, its error is not retryable under
// policy, or MaxAttempts is exhausted, sleeping with exponential backoff
// (optionally jittered) between attempts. Context cancellation during
// the call or during a backoff sleep aborts immediately and is returned
// as-is.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.normalized()

	var zero T
	backoff := policy.InitialBackoff

	for attempt := 1; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if attempt >= policy.MaxAttempts || !policy.allows(err) {
			return zero, err
		}

		sleep := backoff
		if policy.Jitter {
			sleep = time.Duration(float64(sleep) * (0.5 + rand.Float64()*0.5))
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * policy.BackoffFactor)
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}
}
