package retriever

import (
	"context"
	"fmt"

	"github.com/basalt-ai/basalt/llm"
	"github.com/basalt-ai/basalt/rag/embedding"
	"github.com/basalt-ai/basalt/rag/vectorstore"
	"github.com/basalt-ai/basalt/schema"
)

// defaultHyDEPrompt is the format string used to ask the model for a
// hypothetical answer when no WithHyDEPrompt option is given.
const defaultHyDEPrompt = "Write a hypothetical, detailed answer to the following question:\n\n%s"

// HyDERetriever generates a hypothetical answer to the query with an LLM,
// embeds that answer, and searches a vectorstore.VectorStore with the
// resulting vector.
type HyDERetriever struct {
	model        llm.ChatModel
	embedder     embedding.Embedder
	store        vectorstore.VectorStore
	promptFormat string
	hooks        Hooks
}

// HyDEOption configures a HyDERetriever.
type HyDEOption func(*HyDERetriever)

// WithHyDEPrompt overrides the %s-style prompt format used to ask the model
// for a hypothetical answer.
func WithHyDEPrompt(format string) HyDEOption {
	return func(r *HyDERetriever) { r.promptFormat = format }
}

// WithHyDEHooks attaches lifecycle hooks.
func WithHyDEHooks(hooks Hooks) HyDEOption {
	return func(r *HyDERetriever) { r.hooks = hooks }
}

// NewHyDERetriever returns a Retriever that searches store using the
// embedding of an LLM-generated hypothetical answer.
func NewHyDERetriever(model llm.ChatModel, embedder embedding.Embedder, store vectorstore.VectorStore, opts ...HyDEOption) *HyDERetriever {
	r := &HyDERetriever{model: model, embedder: embedder, store: store, promptFormat: defaultHyDEPrompt}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HyDERetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
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

func (r *HyDERetriever) retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	cfg := ApplyOptions(opts...)

	prompt := fmt.Sprintf(r.promptFormat, query)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("retriever: hyde generate: %w", err)
	}

	vec, err := r.embedder.EmbedSingle(ctx, resp.Text())
	if err != nil {
		return nil, fmt.Errorf("retriever: hyde embed: %w", err)
	}

	return r.store.Search(ctx, vec, cfg.TopK, searchOptionsFor(cfg)...)
}

var _ Retriever = (*HyDERetriever)(nil)
