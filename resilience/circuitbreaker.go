package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker's current position in the
// closed -> open -> half-open cycle.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned by Execute when the breaker is open and the
// reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// CircuitBreaker trips open after a run of consecutive failures and
// refuses calls until resetTimeout has passed, at which point it lets a
// single probe call through (half-open) to decide whether to close
// again or reopen.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewCircuitBreaker constructs a breaker. A zero failureThreshold
// defaults to 5 and a zero resetTimeout defaults to 30s.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	if resetTimeout == 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
	}
}

// State reports the breaker's current state, transitioning Open to
// HalfOpen first if resetTimeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpenLocked()
	return cb.state
}

func (cb *CircuitBreaker) maybeHalfOpenLocked() {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		cb.state = StateHalfOpen
	}
}

// Execute runs fn if the breaker permits it, recording the outcome. A
// closed breaker always runs fn; an open breaker refuses with
// ErrCircuitOpen until the reset timeout elapses, after which a single
// half-open probe is allowed through to decide the next state.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	cb.mu.Lock()
	cb.maybeHalfOpenLocked()
	if cb.state == StateOpen {
		cb.mu.Unlock()
		return nil, ErrCircuitOpen
	}
	probing := cb.state == StateHalfOpen
	cb.mu.Unlock()

	result, err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		if probing || cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
		return result, err
	}

	cb.failures = 0
	cb.state = StateClosed
	return result, nil
}

// Reset forces the breaker back to closed with a clean failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
}
