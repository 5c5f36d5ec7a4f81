package retriever

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/basalt-ai/basalt/llm"
	"github.com/basalt-ai/basalt/schema"
)

// CRAGRetriever scores an inner Retriever's results for relevance with an
// LLM, falling back to web search when nothing scores above threshold.
type CRAGRetriever struct {
	inner     Retriever
	model     llm.ChatModel
	web       WebSearcher
	threshold float64
	hooks     Hooks
}

// CRAGOption configures a CRAGRetriever.
type CRAGOption func(*CRAGRetriever)

// WithCRAGThreshold sets the relevance score above which a document is kept
// (default 0.0).
func WithCRAGThreshold(threshold float64) CRAGOption {
	return func(r *CRAGRetriever) { r.threshold = threshold }
}

// WithCRAGHooks attaches lifecycle hooks.
func WithCRAGHooks(hooks Hooks) CRAGOption {
	return func(r *CRAGRetriever) { r.hooks = hooks }
}

// NewCRAGRetriever returns a Retriever that corrects inner's results,
// falling back to web when none are relevant. web may be nil.
func NewCRAGRetriever(inner Retriever, model llm.ChatModel, web WebSearcher, opts ...CRAGOption) *CRAGRetriever {
	r := &CRAGRetriever{inner: inner, model: model, web: web}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CRAGRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
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

func (r *CRAGRetriever) retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	cfg := ApplyOptions(opts...)

	docs, err := r.inner.Retrieve(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("retriever: crag inner retrieve: %w", err)
	}

	if len(docs) == 0 {
		return r.webFallback(ctx, query, cfg)
	}

	relevant := make([]schema.Document, 0, len(docs))
	for i, doc := range docs {
		score, err := r.scoreDocument(ctx, query, doc)
		if err != nil {
			return nil, err
		}
		doc.Score = score
		docs[i] = doc
		if score > r.threshold {
			relevant = append(relevant, doc)
		}
	}

	if len(relevant) > 0 {
		if cfg.TopK > 0 && len(relevant) > cfg.TopK {
			relevant = relevant[:cfg.TopK]
		}
		return relevant, nil
	}

	return r.webFallback(ctx, query, cfg)
}

// scoreDocument asks the model to rate doc's relevance to query, parsing the
// response as a float clamped to [-1.0, 1.0].
func (r *CRAGRetriever) scoreDocument(ctx context.Context, query string, doc schema.Document) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate the relevance of the following document to the query on a scale of -1.0 (irrelevant) to 1.0 (highly relevant). Respond with only the number.\n\nQuery: %s\n\nDocument: %s",
		query, doc.Content,
	)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		return 0, fmt.Errorf("retriever: crag evaluate: %w", err)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(resp.Text()), 64)
	if err != nil {
		return 0, fmt.Errorf("retriever: crag evaluate: %w", err)
	}

	switch {
	case score > 1.0:
		score = 1.0
	case score < -1.0:
		score = -1.0
	}
	return score, nil
}

func (r *CRAGRetriever) webFallback(ctx context.Context, query string, cfg Config) ([]schema.Document, error) {
	if r.web == nil {
		return nil, nil
	}
	k := cfg.TopK
	docs, err := r.web.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retriever: crag web search: %w", err)
	}
	return docs, nil
}

var _ Retriever = (*CRAGRetriever)(nil)
