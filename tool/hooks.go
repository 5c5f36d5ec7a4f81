package tool

import "context"

// Hooks are lifecycle callbacks invoked around a Tool's Execute. Any field
// may be nil.
type Hooks struct {
	BeforeExecute func(ctx context.Context, name string, input map[string]any) error
	AfterExecute  func(ctx context.Context, name string, result *Result, err error)
	OnError       func(ctx context.Context, name string, err error) error
}

// ComposeHooks merges multiple Hooks into one. BeforeExecute callbacks run in
// order and the first error aborts the chain. AfterExecute callbacks all run.
// OnError callbacks run in order; the first non-nil replacement wins, and the
// original error is returned if every callback returns nil.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeExecute: func(ctx context.Context, name string, input map[string]any) error {
			for _, h := range hooks {
				if h.BeforeExecute == nil {
					continue
				}
				if err := h.BeforeExecute(ctx, name, input); err != nil {
					return err
				}
			}
			return nil
		},
		AfterExecute: func(ctx context.Context, name string, result *Result, err error) {
			for _, h := range hooks {
				if h.AfterExecute != nil {
					h.AfterExecute(ctx, name, result, err)
				}
			}
		},
		OnError: func(ctx context.Context, name string, err error) error {
			for _, h := range hooks {
				if h.OnError == nil {
					continue
				}
				if replaced := h.OnError(ctx, name, err); replaced != nil {
					return replaced
				}
			}
			return err
		},
	}
}

// hookedTool wraps a Tool with Hooks around its Execute.
type hookedTool struct {
	Tool
	hooks Hooks
}

// WithHooks wraps t so BeforeExecute/AfterExecute/OnError run around every
// Execute call.
func WithHooks(t Tool, hooks Hooks) Tool {
	return &hookedTool{Tool: t, hooks: hooks}
}

func (h *hookedTool) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	name := h.Tool.Name()
	if h.hooks.BeforeExecute != nil {
		if err := h.hooks.BeforeExecute(ctx, name, input); err != nil {
			return nil, err
		}
	}
	result, err := h.Tool.Execute(ctx, input)
	if err != nil && h.hooks.OnError != nil {
		err = h.hooks.OnError(ctx, name, err)
	}
	if h.hooks.AfterExecute != nil {
		h.hooks.AfterExecute(ctx, name, result, err)
	}
	return result, err
}
