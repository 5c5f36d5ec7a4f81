// Package retriever turns a query into ranked Documents, through a registry
// of named strategies (plain vector search, hybrid BM25+vector, reranking,
// multi-query expansion, ensemble fusion, corrective RAG, adaptive routing,
// and HyDE) that all compose through the same Retriever interface.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/basalt-ai/basalt/config"
	"github.com/basalt-ai/basalt/schema"
)

// Retriever returns the Documents most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error)
}

// Config holds the resolved options for one Retrieve call.
type Config struct {
	TopK      int
	Threshold float64
	Metadata  map[string]any
}

// Option configures a Config.
type Option func(*Config)

// WithTopK caps the number of Documents returned. Default 10.
func WithTopK(k int) Option {
	return func(c *Config) { c.TopK = k }
}

// WithThreshold discards results scoring below threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Config) { c.Threshold = threshold }
}

// WithMetadata restricts results to Documents whose metadata matches every
// key/value pair in metadata.
func WithMetadata(metadata map[string]any) Option {
	return func(c *Config) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// ApplyOptions resolves opts against the defaults (TopK=10).
func ApplyOptions(opts ...Option) Config {
	cfg := Config{TopK: 10}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Factory constructs a Retriever from a ProviderConfig.
type Factory func(cfg config.ProviderConfig) (Retriever, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a named retriever factory to the global registry, intended
// to be called from provider init() functions. Registering a duplicate name
// overwrites the previous factory.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New constructs the named retriever via its registered factory.
func New(name string, cfg config.ProviderConfig) (Retriever, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("retriever: unknown provider %q (registered: %v)", name, List())
	}
	return f(cfg)
}

// List returns the sorted names of all registered retriever providers.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortByScore sorts docs in place by descending Score, preserving the
// relative order of equal-scoring documents.
func sortByScore(docs []schema.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
}

// dedup returns one Document per ID, keeping the highest-scoring instance
// (and that instance's Content/Metadata) while preserving first-occurrence
// order. The input is left untouched.
func dedup(docs []schema.Document) []schema.Document {
	best := make(map[string]schema.Document, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		existing, seen := best[doc.ID]
		if !seen {
			order = append(order, doc.ID)
			best[doc.ID] = doc
			continue
		}
		if doc.Score > existing.Score {
			best[doc.ID] = doc
		}
	}
	result := make([]schema.Document, len(order))
	for i, id := range order {
		result[i] = best[id]
	}
	return result
}
