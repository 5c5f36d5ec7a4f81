package resilience

import (
	"context"
	"sync"
	"time"
)

// pollInterval bounds how long Allow/ConsumeTokens can overshoot a
// caller's context deadline while waiting for budget to free up.
const pollInterval = 5 * time.Millisecond

// ProviderLimits describes the throughput ceilings a single upstream
// provider enforces. A zero field means that dimension is unlimited.
type ProviderLimits struct {
	RPM             int
	TPM             int
	MaxConcurrent   int
	CooldownOnRetry time.Duration
}

// RateLimiter gates calls to one provider against its advertised
// requests-per-minute, tokens-per-minute, and concurrency ceilings
// using token buckets that refill continuously.
type RateLimiter struct {
	limits ProviderLimits

	mu         sync.Mutex
	rpmTokens  float64
	tpmTokens  float64
	rpmRefill  time.Time
	tpmRefill  time.Time
	concurrent int
}

// NewRateLimiter constructs a limiter whose buckets start full.
func NewRateLimiter(limits ProviderLimits) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		limits:    limits,
		rpmTokens: float64(limits.RPM),
		tpmTokens: float64(limits.TPM),
		rpmRefill: now,
		tpmRefill: now,
	}
}

// Allow blocks until a request slot is available under both the RPM
// bucket and the concurrency ceiling, or ctx is done. A successful
// Allow reserves one concurrency slot; callers must call Release when
// the request completes.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rl.mu.Lock()
		rl.refillRPMLocked()
		rpmOK := rl.limits.RPM == 0 || rl.rpmTokens >= 1
		concOK := rl.limits.MaxConcurrent == 0 || rl.concurrent < rl.limits.MaxConcurrent
		if rpmOK && concOK {
			if rl.limits.RPM > 0 {
				rl.rpmTokens--
			}
			if rl.limits.MaxConcurrent > 0 {
				rl.concurrent++
			}
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release frees the concurrency slot reserved by a prior Allow. It is
// safe to call even when MaxConcurrent is unset or no slot is held.
func (rl *RateLimiter) Release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.concurrent > 0 {
		rl.concurrent--
	}
}

// Wait pauses for the provider's configured cooldown, e.g. after a
// rate-limit response, returning early if ctx is done first.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limits.CooldownOnRetry <= 0 {
		return nil
	}
	timer := time.NewTimer(rl.limits.CooldownOnRetry)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeTokens blocks until n tokens are available in the TPM bucket,
// or ctx is done. A non-positive n or an unset TPM limit is a no-op.
func (rl *RateLimiter) ConsumeTokens(ctx context.Context, n int) error {
	if rl.limits.TPM == 0 || n <= 0 {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rl.mu.Lock()
		rl.refillTPMLocked()
		if rl.tpmTokens >= float64(n) {
			rl.tpmTokens -= float64(n)
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (rl *RateLimiter) refillRPMLocked() {
	if rl.limits.RPM == 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(rl.rpmRefill).Seconds()
	rl.rpmRefill = now
	rl.rpmTokens += elapsed * (float64(rl.limits.RPM) / 60.0)
	if rl.rpmTokens > float64(rl.limits.RPM) {
		rl.rpmTokens = float64(rl.limits.RPM)
	}
}

func (rl *RateLimiter) refillTPMLocked() {
	if rl.limits.TPM == 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(rl.tpmRefill).Seconds()
	rl.tpmRefill = now
	rl.tpmTokens += elapsed * (float64(rl.limits.TPM) / 60.0)
	if rl.tpmTokens > float64(rl.limits.TPM) {
		rl.tpmTokens = float64(rl.limits.TPM)
	}
}
