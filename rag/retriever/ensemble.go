package retriever

import (
	"context"
	"fmt"

	"github.com/basalt-ai/basalt/schema"
)

// FusionStrategy combines several ranked result sets into one ranked set.
type FusionStrategy interface {
	Fuse(ctx context.Context, sets [][]schema.Document) ([]schema.Document, error)
}

// defaultRRFK is the reciprocal rank fusion constant used when none is given.
const defaultRRFK = 60

// RRFStrategy fuses result sets by reciprocal rank fusion: each document's
// score is the sum of 1/(K+rank+1) over every set it appears in, rank being
// its 0-indexed position within that set.
type RRFStrategy struct {
	K int
}

// NewRRFStrategy returns an RRFStrategy with constant k. k <= 0 defaults to
// 60.
func NewRRFStrategy(k int) *RRFStrategy {
	if k <= 0 {
		k = defaultRRFK
	}
	return &RRFStrategy{K: k}
}

func (s *RRFStrategy) Fuse(ctx context.Context, sets [][]schema.Document) ([]schema.Document, error) {
	scores := make(map[string]float64)
	docs := make(map[string]schema.Document)
	order := make([]string, 0)

	for _, set := range sets {
		for rank, doc := range set {
			if _, seen := docs[doc.ID]; !seen {
				order = append(order, doc.ID)
				docs[doc.ID] = doc
			}
			scores[doc.ID] += 1.0 / float64(s.K+rank+1)
		}
	}

	result := make([]schema.Document, 0, len(order))
	for _, id := range order {
		doc := docs[id]
		doc.Score = scores[id]
		result = append(result, doc)
	}
	sortByScore(result)
	return result, nil
}

// WeightedStrategy fuses result sets by a weighted sum of each document's
// per-set score, with weights normalized to sum to 1.0.
type WeightedStrategy struct {
	Weights []float64
}

// NewWeightedStrategy returns a WeightedStrategy with the given per-set
// weights.
func NewWeightedStrategy(weights []float64) *WeightedStrategy {
	return &WeightedStrategy{Weights: weights}
}

func (s *WeightedStrategy) Fuse(ctx context.Context, sets [][]schema.Document) ([]schema.Document, error) {
	if len(s.Weights) != len(sets) {
		return nil, fmt.Errorf("retriever: %d weights for %d result sets", len(s.Weights), len(sets))
	}

	var sum float64
	for _, w := range s.Weights {
		sum += w
	}
	if sum == 0 {
		return nil, fmt.Errorf("retriever: weighted fuse: weights sum to zero")
	}

	normalized := make([]float64, len(s.Weights))
	for i, w := range s.Weights {
		normalized[i] = w / sum
	}

	scores := make(map[string]float64)
	docs := make(map[string]schema.Document)
	order := make([]string, 0)

	for i, set := range sets {
		for _, doc := range set {
			if _, seen := docs[doc.ID]; !seen {
				order = append(order, doc.ID)
				docs[doc.ID] = doc
			}
			scores[doc.ID] += doc.Score * normalized[i]
		}
	}

	result := make([]schema.Document, 0, len(order))
	for _, id := range order {
		doc := docs[id]
		doc.Score = scores[id]
		result = append(result, doc)
	}
	sortByScore(result)
	return result, nil
}

// EnsembleRetriever queries several Retrievers and fuses their results with a
// FusionStrategy.
type EnsembleRetriever struct {
	retrievers []Retriever
	strategy   FusionStrategy
	hooks      Hooks
}

// EnsembleOption configures an EnsembleRetriever.
type EnsembleOption func(*EnsembleRetriever)

// WithEnsembleHooks attaches lifecycle hooks.
func WithEnsembleHooks(hooks Hooks) EnsembleOption {
	return func(r *EnsembleRetriever) { r.hooks = hooks }
}

// NewEnsembleRetriever returns a Retriever that fuses the results of
// retrievers using strategy. A nil strategy defaults to RRF with K=60.
func NewEnsembleRetriever(retrievers []Retriever, strategy FusionStrategy, opts ...EnsembleOption) *EnsembleRetriever {
	if strategy == nil {
		strategy = NewRRFStrategy(defaultRRFK)
	}
	r := &EnsembleRetriever{retrievers: retrievers, strategy: strategy}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *EnsembleRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
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

func (r *EnsembleRetriever) retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	cfg := ApplyOptions(opts...)

	sets := make([][]schema.Document, len(r.retrievers))
	for i, retriever := range r.retrievers {
		docs, err := retriever.Retrieve(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("retriever: ensemble retriever %d: %w", i, err)
		}
		sets[i] = docs
	}

	fused, err := r.strategy.Fuse(ctx, sets)
	if err != nil {
		return nil, fmt.Errorf("retriever: ensemble fuse: %w", err)
	}

	if cfg.TopK > 0 && len(fused) > cfg.TopK {
		fused = fused[:cfg.TopK]
	}
	return fused, nil
}

var (
	_ Retriever      = (*EnsembleRetriever)(nil)
	_ FusionStrategy = (*RRFStrategy)(nil)
	_ FusionStrategy = (*WeightedStrategy)(nil)
)
