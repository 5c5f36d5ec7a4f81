package retriever

import (
	"context"
	"fmt"

	"github.com/basalt-ai/basalt/schema"
)

// RerankRetriever reorders an inner Retriever's results with a Reranker,
// optionally truncating to the top N.
type RerankRetriever struct {
	inner    Retriever
	reranker Reranker
	topN     int
	hooks    Hooks
}

// RerankOption configures a RerankRetriever.
type RerankOption func(*RerankRetriever)

// WithRerankTopN truncates reranked results to n. n <= 0 means unlimited
// (the default).
func WithRerankTopN(n int) RerankOption {
	return func(r *RerankRetriever) { r.topN = n }
}

// WithRerankHooks attaches lifecycle hooks.
func WithRerankHooks(hooks Hooks) RerankOption {
	return func(r *RerankRetriever) { r.hooks = hooks }
}

// NewRerankRetriever returns a Retriever that reranks inner's results with
// reranker.
func NewRerankRetriever(inner Retriever, reranker Reranker, opts ...RerankOption) *RerankRetriever {
	r := &RerankRetriever{inner: inner, reranker: reranker}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RerankRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	docs, err := r.retrieve(ctx, query, opts...)

	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, docs, err)
	}
	return docs, err
}

func (r *RerankRetriever) retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	docs, err := r.inner.Retrieve(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("retriever: rerank inner retrieve: %w", err)
	}
	if len(docs) == 0 {
		return docs, nil
	}

	reranked, err := r.reranker.Rerank(ctx, query, docs)
	if err != nil {
		return nil, fmt.Errorf("retriever: rerank: %w", err)
	}

	if r.hooks.OnRerank != nil {
		r.hooks.OnRerank(ctx, query, docs, reranked)
	}

	if r.topN > 0 && len(reranked) > r.topN {
		reranked = reranked[:r.topN]
	}
	return reranked, nil
}

var _ Retriever = (*RerankRetriever)(nil)
