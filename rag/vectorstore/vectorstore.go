// Package vectorstore persists embedded Documents and serves similarity
// search over them, through a registry of named providers (pgvector,
// Qdrant, Pinecone, Milvus, Weaviate, Chroma, Redis, MongoDB, Vespa,
// sqlite-vec, Turbopuffer, Elasticsearch, and an in-memory provider for
// tests).
package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/basalt-ai/basalt/config"
	"github.com/basalt-ai/basalt/schema"
)

// SearchStrategy selects how query/candidate vectors are compared.
type SearchStrategy int

const (
	Cosine SearchStrategy = iota
	DotProduct
	Euclidean
)

func (s SearchStrategy) String() string {
	switch s {
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot_product"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// SearchConfig holds the resolved options for one Search call.
type SearchConfig struct {
	Filter    map[string]any
	Threshold float64
	Strategy  SearchStrategy
}

// SearchOption configures a SearchConfig.
type SearchOption func(*SearchConfig)

// WithFilter restricts results to Documents whose metadata matches every
// key/value pair in filter.
func WithFilter(filter map[string]any) SearchOption {
	return func(c *SearchConfig) {
		if c.Filter == nil {
			c.Filter = make(map[string]any, len(filter))
		}
		for k, v := range filter {
			c.Filter[k] = v
		}
	}
}

// WithThreshold discards results scoring below threshold.
func WithThreshold(threshold float64) SearchOption {
	return func(c *SearchConfig) { c.Threshold = threshold }
}

// WithStrategy selects the similarity measure used for scoring.
func WithStrategy(strategy SearchStrategy) SearchOption {
	return func(c *SearchConfig) { c.Strategy = strategy }
}

// VectorStore persists embedded Documents and serves similarity search.
type VectorStore interface {
	// Add stores docs with their corresponding embeddings, matched by
	// index; len(docs) must equal len(embeddings).
	Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error
	// Search returns the k Documents scoring highest against query,
	// their Score field set to the similarity score.
	Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]schema.Document, error)
	// Delete removes the Documents with the given ids, if present.
	Delete(ctx context.Context, ids []string) error
}

// Factory constructs a VectorStore from a ProviderConfig.
type Factory func(cfg config.ProviderConfig) (VectorStore, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds a named vector store factory to the global registry,
// intended to be called from provider init() functions. Registering a
// duplicate name overwrites the previous factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// New constructs the named vector store via its registered factory.
func New(name string, cfg config.ProviderConfig) (VectorStore, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vectorstore: unknown provider %q (registered: %v)", name, List())
	}
	return f(cfg)
}

// List returns the sorted names of all registered vector store providers.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hooks observes Add/Search/Delete calls without altering their outcome.
type Hooks struct {
	BeforeAdd    func(ctx context.Context, docs []schema.Document) error
	AfterSearch  func(ctx context.Context, results []schema.Document, err error)
	BeforeDelete func(ctx context.Context, ids []string) error
}

// ComposeHooks merges hooks in order: every Before* runs in sequence,
// the first error aborting the rest; every After* always runs, in the
// same order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeAdd: func(ctx context.Context, docs []schema.Document) error {
			for _, h := range hooks {
				if h.BeforeAdd == nil {
					continue
				}
				if err := h.BeforeAdd(ctx, docs); err != nil {
					return err
				}
			}
			return nil
		},
		AfterSearch: func(ctx context.Context, results []schema.Document, err error) {
			for _, h := range hooks {
				if h.AfterSearch != nil {
					h.AfterSearch(ctx, results, err)
				}
			}
		},
		BeforeDelete: func(ctx context.Context, ids []string) error {
			for _, h := range hooks {
				if h.BeforeDelete == nil {
					continue
				}
				if err := h.BeforeDelete(ctx, ids); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// Middleware wraps a VectorStore with additional behavior.
type Middleware func(next VectorStore) VectorStore

// ApplyMiddleware wraps s with mws, the first listed becoming outermost.
func ApplyMiddleware(s VectorStore, mws ...Middleware) VectorStore {
	wrapped := s
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// WithHooks returns a Middleware that runs hooks around Add, Search, and
// Delete.
func WithHooks(hooks Hooks) Middleware {
	return func(next VectorStore) VectorStore {
		return &hookedStore{next: next, hooks: hooks}
	}
}

type hookedStore struct {
	next  VectorStore
	hooks Hooks
}

func (s *hookedStore) Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if s.hooks.BeforeAdd != nil {
		if err := s.hooks.BeforeAdd(ctx, docs); err != nil {
			return err
		}
	}
	return s.next.Add(ctx, docs, embeddings)
}

func (s *hookedStore) Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]schema.Document, error) {
	results, err := s.next.Search(ctx, query, k, opts...)
	if s.hooks.AfterSearch != nil {
		s.hooks.AfterSearch(ctx, results, err)
	}
	return results, err
}

func (s *hookedStore) Delete(ctx context.Context, ids []string) error {
	if s.hooks.BeforeDelete != nil {
		if err := s.hooks.BeforeDelete(ctx, ids); err != nil {
			return err
		}
	}
	return s.next.Delete(ctx, ids)
}

var _ VectorStore = (*hookedStore)(nil)
