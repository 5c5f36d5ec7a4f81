// Package embedding turns text into dense vectors through a registry of
// named providers (OpenAI, Cohere, Voyage, Jina, Mistral, Google, Ollama,
// sentence-transformers, and a deterministic in-memory provider for
// tests), with middleware and hook support shared across providers.
package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/basalt-ai/basalt/config"
)

// Embedder turns text into dense vectors.
type Embedder interface {
	// Embed returns one vector per text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle embeds one text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Dimensions is the length of every vector this Embedder produces.
	Dimensions() int
}

// Factory constructs an Embedder from a ProviderConfig.
type Factory func(cfg config.ProviderConfig) (Embedder, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds a named embedder factory to the global registry,
// intended to be called from provider init() functions. Registering a
// duplicate name overwrites the previous factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// New constructs the named embedder via its registered factory.
func New(name string, cfg config.ProviderConfig) (Embedder, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("embedding: unknown provider %q (registered: %v)", name, List())
	}
	return f(cfg)
}

// List returns the sorted names of all registered embedding providers.
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

// Hooks observes Embed calls without altering their outcome.
type Hooks struct {
	// BeforeEmbed runs before the underlying call; a non-nil error
	// aborts the call.
	BeforeEmbed func(ctx context.Context, texts []string) error
	// AfterEmbed runs after the underlying call with its result.
	AfterEmbed func(ctx context.Context, embeddings [][]float32, err error)
}

// ComposeHooks merges hooks in order: every BeforeEmbed runs in sequence,
// the first error aborting the rest; every AfterEmbed always runs, in
// the same order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeEmbed: func(ctx context.Context, texts []string) error {
			for _, h := range hooks {
				if h.BeforeEmbed == nil {
					continue
				}
				if err := h.BeforeEmbed(ctx, texts); err != nil {
					return err
				}
			}
			return nil
		},
		AfterEmbed: func(ctx context.Context, embeddings [][]float32, err error) {
			for _, h := range hooks {
				if h.AfterEmbed != nil {
					h.AfterEmbed(ctx, embeddings, err)
				}
			}
		},
	}
}

// Middleware wraps an Embedder with additional behavior.
type Middleware func(next Embedder) Embedder

// ApplyMiddleware wraps e with mws, the first listed becoming outermost.
func ApplyMiddleware(e Embedder, mws ...Middleware) Embedder {
	wrapped := e
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// WithHooks returns a Middleware that runs hooks around every Embed and
// EmbedSingle call.
func WithHooks(hooks Hooks) Middleware {
	return func(next Embedder) Embedder {
		return &hookedEmbedder{next: next, hooks: hooks}
	}
}

type hookedEmbedder struct {
	next  Embedder
	hooks Hooks
}

func (e *hookedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.hooks.BeforeEmbed != nil {
		if err := e.hooks.BeforeEmbed(ctx, texts); err != nil {
			if e.hooks.AfterEmbed != nil {
				e.hooks.AfterEmbed(ctx, nil, err)
			}
			return nil, err
		}
	}
	embeddings, err := e.next.Embed(ctx, texts)
	if e.hooks.AfterEmbed != nil {
		e.hooks.AfterEmbed(ctx, embeddings, err)
	}
	return embeddings, err
}

func (e *hookedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if e.hooks.BeforeEmbed != nil {
		if err := e.hooks.BeforeEmbed(ctx, []string{text}); err != nil {
			if e.hooks.AfterEmbed != nil {
				e.hooks.AfterEmbed(ctx, nil, err)
			}
			return nil, err
		}
	}
	vec, err := e.next.EmbedSingle(ctx, text)
	if e.hooks.AfterEmbed != nil {
		var embeddings [][]float32
		if vec != nil {
			embeddings = [][]float32{vec}
		}
		e.hooks.AfterEmbed(ctx, embeddings, err)
	}
	return vec, err
}

func (e *hookedEmbedder) Dimensions() int { return e.next.Dimensions() }

var _ Embedder = (*hookedEmbedder)(nil)
