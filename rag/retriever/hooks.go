package retriever

import (
	"context"

	"github.com/basalt-ai/basalt/schema"
)

// Hooks observes Retrieve calls without altering their outcome. All fields
// are optional.
type Hooks struct {
	// BeforeRetrieve runs before the underlying call; a non-nil error
	// aborts the call.
	BeforeRetrieve func(ctx context.Context, query string) error
	// AfterRetrieve runs after the underlying call with its result.
	AfterRetrieve func(ctx context.Context, docs []schema.Document, err error)
	// OnRerank runs whenever a reranking step reorders documents, with the
	// pre- and post-rerank slices.
	OnRerank func(ctx context.Context, query string, before, after []schema.Document)
}

// ComposeHooks merges hooks in order: every BeforeRetrieve runs in
// sequence, the first error aborting the rest; every AfterRetrieve and
// OnRerank always runs, in the same order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeRetrieve: func(ctx context.Context, query string) error {
			for _, h := range hooks {
				if h.BeforeRetrieve == nil {
					continue
				}
				if err := h.BeforeRetrieve(ctx, query); err != nil {
					return err
				}
			}
			return nil
		},
		AfterRetrieve: func(ctx context.Context, docs []schema.Document, err error) {
			for _, h := range hooks {
				if h.AfterRetrieve != nil {
					h.AfterRetrieve(ctx, docs, err)
				}
			}
		},
		OnRerank: func(ctx context.Context, query string, before, after []schema.Document) {
			for _, h := range hooks {
				if h.OnRerank != nil {
					h.OnRerank(ctx, query, before, after)
				}
			}
		},
	}
}
