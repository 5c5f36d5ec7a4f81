package state

import (
	"context"

	"github.com/basalt-ai/basalt/internal/hookutil"
)

// Hooks are optional callbacks invoked around Store operations by
// WithHooks. Before-hooks that return a non-nil error abort the
// operation before it reaches the underlying store. OnError inspects
// (and may replace) an error already produced by the store; a nil
// return passes the original error through unchanged.
type Hooks struct {
	BeforeGet func(ctx context.Context, key string) error
	AfterGet  func(ctx context.Context, key string, value any, err error)

	BeforeSet func(ctx context.Context, key string, value any) error
	AfterSet  func(ctx context.Context, key string, value any, err error)

	OnDelete func(ctx context.Context, key string) error
	OnWatch  func(ctx context.Context, key string) error

	OnError func(ctx context.Context, err error) error
}

// ComposeHooks merges multiple Hooks into one. Error-returning hooks of
// a given kind run in order until one returns non-nil, which
// short-circuits the rest. OnError instead passes every hook its
// predecessor's (possibly already-replaced) error read against the
// original; if every hook returns nil, the original error is returned
// unchanged (passthrough semantics).
func ComposeHooks(hooks ...Hooks) Hooks {
	h := append([]Hooks{}, hooks...)
	return Hooks{
		BeforeGet: hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, string) error { return hk.BeforeGet }),
		AfterGet: hookutil.ComposeVoid3(h, func(hk Hooks) func(context.Context, string, any, error) { return hk.AfterGet }),
		BeforeSet: hookutil.ComposeError2(h, func(hk Hooks) func(context.Context, string, any) error { return hk.BeforeSet }),
		AfterSet: hookutil.ComposeVoid3(h, func(hk Hooks) func(context.Context, string, any, error) { return hk.AfterSet }),
		OnDelete: hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, string) error { return hk.OnDelete }),
		OnWatch:  hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, string) error { return hk.OnWatch }),
		OnError:  hookutil.ComposeErrorPassthrough(h, func(hk Hooks) func(context.Context, error) error { return hk.OnError }),
	}
}
