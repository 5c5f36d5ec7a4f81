package retriever

import (
	"context"
	"fmt"

	"github.com/basalt-ai/basalt/rag/embedding"
	"github.com/basalt-ai/basalt/rag/vectorstore"
	"github.com/basalt-ai/basalt/schema"
)

// minHybridCandidates is the minimum number of results fetched from each
// underlying search, regardless of the requested TopK, so RRF fusion has
// enough candidates to rank between.
const minHybridCandidates = 20

// HybridRetriever fuses vector similarity search with BM25 lexical search
// via reciprocal rank fusion.
type HybridRetriever struct {
	store    vectorstore.VectorStore
	embedder embedding.Embedder
	bm25     BM25Searcher
	rrfK     int
	hooks    Hooks
}

// HybridOption configures a HybridRetriever.
type HybridOption func(*HybridRetriever)

// WithHybridRRFK sets the RRF K constant (default 60). Values <= 0 are
// ignored.
func WithHybridRRFK(k int) HybridOption {
	return func(r *HybridRetriever) {
		if k > 0 {
			r.rrfK = k
		}
	}
}

// WithHybridHooks attaches lifecycle hooks.
func WithHybridHooks(hooks Hooks) HybridOption {
	return func(r *HybridRetriever) { r.hooks = hooks }
}

// NewHybridRetriever returns a Retriever that fuses store's vector search
// with bm25's lexical search.
func NewHybridRetriever(store vectorstore.VectorStore, embedder embedding.Embedder, bm25 BM25Searcher, opts ...HybridOption) *HybridRetriever {
	r := &HybridRetriever{store: store, embedder: embedder, bm25: bm25, rrfK: 60}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HybridRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
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

func (r *HybridRetriever) retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	cfg := ApplyOptions(opts...)
	candidateK := cfg.TopK
	if candidateK < minHybridCandidates {
		candidateK = minHybridCandidates
	}

	vec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: hybrid embed: %w", err)
	}

	vectorDocs, err := r.store.Search(ctx, vec, candidateK, searchOptionsFor(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("retriever: hybrid vector search: %w", err)
	}

	bm25Docs, err := r.bm25.Search(ctx, query, candidateK)
	if err != nil {
		return nil, fmt.Errorf("retriever: hybrid bm25 search: %w", err)
	}

	fused, err := NewRRFStrategy(r.rrfK).Fuse(ctx, [][]schema.Document{vectorDocs, bm25Docs})
	if err != nil {
		return nil, fmt.Errorf("retriever: hybrid fuse: %w", err)
	}

	if cfg.TopK > 0 && len(fused) > cfg.TopK {
		fused = fused[:cfg.TopK]
	}
	return fused, nil
}

var _ Retriever = (*HybridRetriever)(nil)
