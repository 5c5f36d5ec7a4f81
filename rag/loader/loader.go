// Package loader reads external sources into schema.Documents: local
// files in a handful of core formats, plus provider-backed connectors
// (Notion, Confluence, GitHub, cloud storage, ...) registered the same
// way.
package loader

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/basalt-ai/basalt/config"
	"github.com/basalt-ai/basalt/schema"
)

// Loader reads whatever source is at path and returns the Documents found
// there. path is loader-specific: a filesystem path for the core loaders,
// a page/space/repo identifier for a provider connector.
type Loader interface {
	Load(ctx context.Context, path string) ([]schema.Document, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) ([]schema.Document, error)

func (f LoaderFunc) Load(ctx context.Context, path string) ([]schema.Document, error) {
	return f(ctx, path)
}

// Factory constructs a Loader from a ProviderConfig.
type Factory func(cfg config.ProviderConfig) (Loader, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds a named loader factory to the global registry, intended
// to be called from provider init() functions. Registering a duplicate
// name overwrites the previous factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// New constructs the named loader via its registered factory.
func New(name string, cfg config.ProviderConfig) (Loader, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("loader: unknown provider %q (registered: %v)", name, List())
	}
	return f(cfg)
}

// List returns the sorted names of all registered loader providers.
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

func init() {
	Register("text", func(config.ProviderConfig) (Loader, error) { return NewTextLoader(), nil })
	Register("csv", func(config.ProviderConfig) (Loader, error) { return NewCSVLoader(), nil })
	Register("json", func(config.ProviderConfig) (Loader, error) { return NewJSONLoader(), nil })
	Register("markdown", func(config.ProviderConfig) (Loader, error) { return NewMarkdownLoader(), nil })
}

// Transformer rewrites a Document after it has been loaded, e.g. to strip
// boilerplate or normalize whitespace.
type Transformer interface {
	Transform(ctx context.Context, doc schema.Document) (schema.Document, error)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(ctx context.Context, doc schema.Document) (schema.Document, error)

func (f TransformerFunc) Transform(ctx context.Context, doc schema.Document) (schema.Document, error) {
	return f(ctx, doc)
}

// Pipeline runs path through every configured Loader, then every
// Document produced through every configured Transformer in order.
type Pipeline struct {
	loaders      []Loader
	transformers []Transformer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLoader appends l to the pipeline's loaders.
func WithLoader(l Loader) PipelineOption {
	return func(p *Pipeline) { p.loaders = append(p.loaders, l) }
}

// WithTransformer appends t to the pipeline's transformers.
func WithTransformer(t Transformer) PipelineOption {
	return func(p *Pipeline) { p.transformers = append(p.transformers, t) }
}

// NewPipeline builds a Pipeline from opts.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load runs path through every loader, feeding the combined output
// through every transformer, and returns the result. Loaders run in the
// order they were added, their outputs concatenated.
func (p *Pipeline) Load(ctx context.Context, path string) ([]schema.Document, error) {
	if len(p.loaders) == 0 {
		return nil, fmt.Errorf("loader: pipeline has no loaders configured")
	}

	var docs []schema.Document
	for _, l := range p.loaders {
		loaded, err := l.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}

	for i, doc := range docs {
		for _, tr := range p.transformers {
			var err error
			doc, err = tr.Transform(ctx, doc)
			if err != nil {
				return nil, err
			}
		}
		docs[i] = doc
	}
	return docs, nil
}
