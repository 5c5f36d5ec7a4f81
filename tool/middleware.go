package tool

import (
	"context"
	"time"

	"github.com/basalt-ai/basalt/core"
)

// Middleware wraps a Tool to add cross-cutting behavior (timeouts, retry,
// and the like).
type Middleware func(next Tool) Tool

// ApplyMiddleware wraps t with mws, first-listed outermost: the Execute of
// mws[0]'s wrapper runs before mws[1]'s, and so on down to t.
func ApplyMiddleware(t Tool, mws ...Middleware) Tool {
	wrapped := t
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

type timeoutTool struct {
	Tool
	timeout time.Duration
}

// WithTimeout bounds every Execute call to d, cancelling the context passed
// to the wrapped Tool once it elapses.
func WithTimeout(d time.Duration) Middleware {
	return func(next Tool) Tool {
		return &timeoutTool{Tool: next, timeout: d}
	}
}

func (t *timeoutTool) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Tool.Execute(ctx, input)
}

type retryTool struct {
	Tool
	attempts int
}

// WithRetry re-invokes the wrapped Tool up to attempts times as long as the
// returned error is retryable (core.IsRetryable) and the context is still
// live.
func WithRetry(attempts int) Middleware {
	return func(next Tool) Tool {
		return &retryTool{Tool: next, attempts: attempts}
	}
}

func (t *retryTool) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	var lastErr error
	for i := 0; i < t.attempts; i++ {
		result, err := t.Tool.Execute(ctx, input)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !core.IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}
