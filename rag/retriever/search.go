package retriever

import (
	"context"

	"github.com/basalt-ai/basalt/schema"
)

// BM25Searcher performs lexical (keyword) search, returning up to k
// Documents for query.
type BM25Searcher interface {
	Search(ctx context.Context, query string, k int) ([]schema.Document, error)
}

// WebSearcher performs a live web search, returning up to k Documents for
// query.
type WebSearcher interface {
	Search(ctx context.Context, query string, k int) ([]schema.Document, error)
}

// Reranker reorders docs by relevance to query, returning a new slice with
// updated Scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []schema.Document) ([]schema.Document, error)
}
