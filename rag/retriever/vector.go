package retriever

import (
	"context"
	"fmt"

	"github.com/basalt-ai/basalt/rag/embedding"
	"github.com/basalt-ai/basalt/rag/vectorstore"
	"github.com/basalt-ai/basalt/schema"
)

// VectorStoreRetriever embeds the query and searches a vectorstore.VectorStore
// for similar Documents.
type VectorStoreRetriever struct {
	store    vectorstore.VectorStore
	embedder embedding.Embedder
	hooks    Hooks
}

// VectorStoreOption configures a VectorStoreRetriever.
type VectorStoreOption func(*VectorStoreRetriever)

// WithVectorStoreHooks attaches lifecycle hooks.
func WithVectorStoreHooks(hooks Hooks) VectorStoreOption {
	return func(r *VectorStoreRetriever) { r.hooks = hooks }
}

// NewVectorStoreRetriever returns a Retriever backed by store, embedding
// queries with embedder.
func NewVectorStoreRetriever(store vectorstore.VectorStore, embedder embedding.Embedder, opts ...VectorStoreOption) *VectorStoreRetriever {
	r := &VectorStoreRetriever{store: store, embedder: embedder}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *VectorStoreRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
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

func (r *VectorStoreRetriever) retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	cfg := ApplyOptions(opts...)

	vec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}

	searchOpts := searchOptionsFor(cfg)
	return r.store.Search(ctx, vec, cfg.TopK, searchOpts...)
}

// searchOptionsFor translates a retriever Config into vectorstore.SearchOptions.
func searchOptionsFor(cfg Config) []vectorstore.SearchOption {
	var opts []vectorstore.SearchOption
	if cfg.Threshold != 0 {
		opts = append(opts, vectorstore.WithThreshold(cfg.Threshold))
	}
	if len(cfg.Metadata) > 0 {
		opts = append(opts, vectorstore.WithFilter(cfg.Metadata))
	}
	return opts
}

var _ Retriever = (*VectorStoreRetriever)(nil)
