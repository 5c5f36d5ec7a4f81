// Package inmemory registers a process-local vector store backed by a
// plain slice and brute-force similarity scoring, useful for tests and
// local development.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/basalt-ai/basalt/config"
	"github.com/basalt-ai/basalt/rag/vectorstore"
	"github.com/basalt-ai/basalt/schema"
)

type entry struct {
	doc schema.Document
	vec []float32
}

// Store is a brute-force, mutex-guarded VectorStore over an in-process
// slice of (Document, vector) pairs.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

func (s *Store) Add(_ context.Context, docs []schema.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("vectorstore: %d docs but %d embeddings", len(docs), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		s.entries[doc.ID] = entry{doc: doc, vec: embeddings[i]}
	}
	return nil
}

func (s *Store) Search(_ context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
	cfg := &vectorstore.SearchConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s.mu.RLock()
	candidates := make([]entry, 0, len(s.entries))
	for _, e := range s.entries {
		if matchesFilter(e.doc, cfg.Filter) {
			candidates = append(candidates, e)
		}
	}
	s.mu.RUnlock()

	scored := make([]schema.Document, 0, len(candidates))
	for _, c := range candidates {
		score := score(cfg.Strategy, query, c.vec)
		if score < cfg.Threshold {
			continue
		}
		doc := c.doc
		doc.Score = score
		scored = append(scored, doc)
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *Store) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func matchesFilter(doc schema.Document, filter map[string]any) bool {
	for k, v := range filter {
		if doc.Metadata[k] != v {
			return false
		}
	}
	return true
}

func score(strategy vectorstore.SearchStrategy, a, b []float32) float64 {
	switch strategy {
	case vectorstore.DotProduct:
		return dot(a, b)
	case vectorstore.Euclidean:
		return 1 / (1 + euclidean(a, b))
	default:
		return cosine(a, b)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		if i >= len(b) {
			break
		}
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32) float64 {
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func euclidean(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv float64
		if i < len(a) {
			av = float64(a[i])
		}
		if i < len(b) {
			bv = float64(b[i])
		}
		d := av - bv
		sum += d * d
	}
	return math.Sqrt(sum)
}

var _ vectorstore.VectorStore = (*Store)(nil)

func init() {
	vectorstore.Register("inmemory", func(config.ProviderConfig) (vectorstore.VectorStore, error) {
		return New(), nil
	})
}
