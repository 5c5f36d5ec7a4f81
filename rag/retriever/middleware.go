package retriever

import (
	"context"

	"github.com/basalt-ai/basalt/schema"
)

// Middleware wraps a Retriever with additional behavior.
type Middleware func(next Retriever) Retriever

// ApplyMiddleware wraps r with mws, the first listed becoming outermost.
func ApplyMiddleware(r Retriever, mws ...Middleware) Retriever {
	wrapped := r
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// WithHooks returns a Middleware that runs hooks around every Retrieve
// call.
func WithHooks(hooks Hooks) Middleware {
	return func(next Retriever) Retriever {
		return &hookedRetriever{next: next, hooks: hooks}
	}
}

type hookedRetriever struct {
	next  Retriever
	hooks Hooks
}

func (r *hookedRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}
	docs, err := r.next.Retrieve(ctx, query, opts...)
	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, docs, err)
	}
	return docs, err
}

var _ Retriever = (*hookedRetriever)(nil)
