package llm

import (
	"context"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/schema"
)

// Prompt is a single-shot text request, as opposed to the multi-message
// exchanges ChatCompletion handles.
type Prompt struct {
	Text    string
	Options []GenerateOption
}

// SimplePrompt is satisfied by anything that can turn a single text
// prompt into a single text completion, without message history or
// tool calls.
type SimplePrompt interface {
	Prompt(ctx context.Context, p Prompt) (string, error)
}

// ChatCompletion is satisfied by anything that can complete a message
// history, optionally offering tool definitions the model may call.
type ChatCompletion interface {
	Complete(ctx context.Context, msgs []schema.Message, toolDefs ...schema.ToolDefinition) (*schema.AIMessage, error)
}

// AsSimplePrompt adapts a ChatModel to SimplePrompt: the prompt text
// becomes a single human message, and the response's concatenated text
// parts are returned.
func AsSimplePrompt(model ChatModel) SimplePrompt {
	return simplePromptAdapter{model: model}
}

type simplePromptAdapter struct {
	model ChatModel
}

func (a simplePromptAdapter) Prompt(ctx context.Context, p Prompt) (string, error) {
	msgs := []schema.Message{schema.NewHumanMessage(p.Text)}
	resp, err := a.model.Generate(ctx, msgs, p.Options...)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// AsChatCompletion adapts a ChatModel to ChatCompletion: supplied tool
// definitions are bound before the call, mirroring BindTools' "new
// model, original unmodified" contract.
func AsChatCompletion(model ChatModel) ChatCompletion {
	return chatCompletionAdapter{model: model}
}

type chatCompletionAdapter struct {
	model ChatModel
}

func (a chatCompletionAdapter) Complete(ctx context.Context, msgs []schema.Message, toolDefs ...schema.ToolDefinition) (*schema.AIMessage, error) {
	model := a.model
	if len(toolDefs) > 0 {
		model = model.BindTools(toolDefs)
	}
	return model.Generate(ctx, msgs)
}

// EmbeddingModel turns a batch of strings into one dense vector per
// string, in order. Dimension is fixed by the underlying model.
// rag/embedding.Embedder already satisfies this shape.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// SparseVector is a sparse embedding: a set of (dimension index, weight)
// pairs, as produced by lexical/learned-sparse models (e.g. SPLADE).
type SparseVector struct {
	Indices []int
	Values  []float32
}

// SparseEmbeddingModel turns a batch of strings into one sparse vector
// per string, in order.
type SparseEmbeddingModel interface {
	SparseEmbed(ctx context.Context, texts []string) ([]SparseVector, error)
}

// NewContextLengthExceeded builds a LanguageModelError reporting that a
// request exceeded the model's context window. Never retryable.
func NewContextLengthExceeded(op, msg string, cause error) *core.Error {
	return core.NewError(op, core.ErrContextLengthExceeded, msg, cause)
}

// NewTransientError builds a LanguageModelError for a failure expected
// to succeed on retry (rate limiting, timeouts, provider outages).
func NewTransientError(op, msg string, cause error) *core.Error {
	return core.NewError(op, core.ErrProviderDown, msg, cause)
}

// NewPermanentError builds a LanguageModelError for a failure that will
// not succeed on retry (e.g. a rejected or malformed request).
func NewPermanentError(op, msg string, cause error) *core.Error {
	return core.NewError(op, core.ErrPermanent, msg, cause)
}
