package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/basalt-ai/basalt/llm"
	"github.com/basalt-ai/basalt/schema"
)

// defaultMultiQueryCount is how many alternate phrasings are generated when
// no WithMultiQueryCount option is given.
const defaultMultiQueryCount = 3

// MultiQueryRetriever asks an LLM to rephrase a query several ways, retrieves
// for the original and every rephrasing, and merges the deduplicated result.
type MultiQueryRetriever struct {
	inner      Retriever
	model      llm.ChatModel
	numQueries int
	hooks      Hooks
}

// MultiQueryOption configures a MultiQueryRetriever.
type MultiQueryOption func(*MultiQueryRetriever)

// WithMultiQueryCount sets how many alternate phrasings are generated
// (default 3). n <= 0 is ignored.
func WithMultiQueryCount(n int) MultiQueryOption {
	return func(r *MultiQueryRetriever) {
		if n > 0 {
			r.numQueries = n
		}
	}
}

// WithMultiQueryHooks attaches lifecycle hooks.
func WithMultiQueryHooks(hooks Hooks) MultiQueryOption {
	return func(r *MultiQueryRetriever) { r.hooks = hooks }
}

// NewMultiQueryRetriever returns a Retriever that expands each query into
// several phrasings via model before delegating to inner.
func NewMultiQueryRetriever(inner Retriever, model llm.ChatModel, opts ...MultiQueryOption) *MultiQueryRetriever {
	r := &MultiQueryRetriever{inner: inner, model: model, numQueries: defaultMultiQueryCount}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MultiQueryRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
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

func (r *MultiQueryRetriever) retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	prompt := fmt.Sprintf(
		"Generate %d alternate phrasings of the following search query, one per line, with no numbering or commentary:\n\n%s",
		r.numQueries, query,
	)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("retriever: generate queries: %w", err)
	}

	queries := append([]string{query}, parseQueryVariants(resp.Text())...)

	var all []schema.Document
	for _, q := range queries {
		docs, err := r.inner.Retrieve(ctx, q, opts...)
		if err != nil {
			return nil, fmt.Errorf("retriever: multiquery retrieve: %w", err)
		}
		all = append(all, docs...)
	}

	result := dedup(all)
	sortByScore(result)
	return result, nil
}

// parseQueryVariants splits an LLM response into trimmed, non-empty lines.
func parseQueryVariants(text string) []string {
	lines := strings.Split(text, "\n")
	variants := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			variants = append(variants, line)
		}
	}
	return variants
}

var _ Retriever = (*MultiQueryRetriever)(nil)
