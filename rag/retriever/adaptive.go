package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/basalt-ai/basalt/llm"
	"github.com/basalt-ai/basalt/schema"
)

// QueryComplexity classifies how much retrieval a query needs.
type QueryComplexity string

const (
	// NoRetrieval means the query can be answered without retrieval.
	NoRetrieval QueryComplexity = "no_retrieval"
	// SimpleRetrieval means a single, straightforward retrieval suffices.
	SimpleRetrieval QueryComplexity = "simple"
	// ComplexRetrieval means the query needs more thorough retrieval.
	ComplexRetrieval QueryComplexity = "complex"
)

// AdaptiveRetriever classifies each query's complexity with an LLM and routes
// it to a simple or complex Retriever accordingly.
type AdaptiveRetriever struct {
	model   llm.ChatModel
	simple  Retriever
	complex Retriever
	hooks   Hooks
}

// AdaptiveOption configures an AdaptiveRetriever.
type AdaptiveOption func(*AdaptiveRetriever)

// WithAdaptiveHooks attaches lifecycle hooks.
func WithAdaptiveHooks(hooks Hooks) AdaptiveOption {
	return func(r *AdaptiveRetriever) { r.hooks = hooks }
}

// NewAdaptiveRetriever returns a Retriever that routes queries to simple or
// complex based on an LLM classification. If complex is nil, simple is used
// for both.
func NewAdaptiveRetriever(model llm.ChatModel, simple Retriever, complex Retriever, opts ...AdaptiveOption) *AdaptiveRetriever {
	if complex == nil {
		complex = simple
	}
	r := &AdaptiveRetriever{model: model, simple: simple, complex: complex}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *AdaptiveRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
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

func (r *AdaptiveRetriever) retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	complexity, err := r.classifyQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	switch complexity {
	case NoRetrieval:
		return nil, nil
	case ComplexRetrieval:
		docs, err := r.complex.Retrieve(ctx, query, opts...)
		if err != nil {
			return nil, fmt.Errorf("retriever: adaptive complex: %w", err)
		}
		return docs, nil
	default:
		docs, err := r.simple.Retrieve(ctx, query, opts...)
		if err != nil {
			return nil, fmt.Errorf("retriever: adaptive simple: %w", err)
		}
		return docs, nil
	}
}

func (r *AdaptiveRetriever) classifyQuery(ctx context.Context, query string) (QueryComplexity, error) {
	prompt := fmt.Sprintf(
		"Classify the retrieval complexity of the following query as exactly one of: no_retrieval, simple, complex.\n\nno_retrieval: the query can be answered without any document retrieval.\nsimple: the query needs a single straightforward retrieval.\ncomplex: the query needs thorough, multi-faceted retrieval.\n\nQuery: %s\n\nRespond with only the classification.",
		query,
	)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("retriever: adaptive classify: %w", err)
	}

	text := strings.ToLower(resp.Text())
	switch {
	case strings.Contains(text, string(NoRetrieval)):
		return NoRetrieval, nil
	case strings.Contains(text, string(ComplexRetrieval)):
		return ComplexRetrieval, nil
	default:
		return SimpleRetrieval, nil
	}
}

var _ Retriever = (*AdaptiveRetriever)(nil)
