// Package splitter breaks loaded documents into chunks sized for
// embedding and retrieval, through a registry of named strategies
// (recursive character, markdown-aware, token-budget) selected the same
// way the rest of rag/* selects providers.
package splitter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/basalt-ai/basalt/config"
	"github.com/basalt-ai/basalt/schema"
)

// Splitter breaks text into chunks and, at the document level, carries
// parent/chunk metadata along with it.
type Splitter interface {
	// Split breaks text into an ordered slice of chunks.
	Split(ctx context.Context, text string) ([]string, error)
	// SplitDocuments splits every Document's Content and returns the
	// resulting chunk Documents with parent/chunk metadata attached.
	SplitDocuments(ctx context.Context, docs []schema.Document) ([]schema.Document, error)
}

// Factory constructs a Splitter from a ProviderConfig.
type Factory func(cfg config.ProviderConfig) (Splitter, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds a named splitter factory to the global registry,
// intended to be called from provider init() functions. Registering a
// duplicate name overwrites the previous factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// New constructs the named splitter via its registered factory.
func New(name string, cfg config.ProviderConfig) (Splitter, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("splitter: unknown provider %q (registered: %v)", name, List())
	}
	return f(cfg)
}

// List returns the sorted names of all registered splitters.
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
	Register("recursive", func(cfg config.ProviderConfig) (Splitter, error) {
		opts := []RecursiveOption{}
		if v, ok := config.GetOption[float64](cfg, "chunk_size"); ok {
			opts = append(opts, WithChunkSize(int(v)))
		}
		if v, ok := config.GetOption[float64](cfg, "chunk_overlap"); ok {
			opts = append(opts, WithChunkOverlap(int(v)))
		}
		return NewRecursiveSplitter(opts...), nil
	})
	Register("markdown", func(cfg config.ProviderConfig) (Splitter, error) {
		opts := []MarkdownOption{}
		if v, ok := config.GetOption[float64](cfg, "chunk_size"); ok {
			opts = append(opts, WithMarkdownChunkSize(int(v)))
		}
		if v, ok := config.GetOption[float64](cfg, "chunk_overlap"); ok {
			opts = append(opts, WithMarkdownChunkOverlap(int(v)))
		}
		if v, ok := config.GetOption[bool](cfg, "preserve_headers"); ok {
			opts = append(opts, WithPreserveHeaders(v))
		}
		return NewMarkdownSplitter(opts...), nil
	})
	Register("token", func(cfg config.ProviderConfig) (Splitter, error) {
		opts := []TokenOption{}
		if v, ok := config.GetOption[float64](cfg, "chunk_size"); ok {
			opts = append(opts, WithTokenChunkSize(int(v)))
		}
		if v, ok := config.GetOption[float64](cfg, "chunk_overlap"); ok {
			opts = append(opts, WithTokenChunkOverlap(int(v)))
		}
		return NewTokenSplitter(opts...), nil
	})
}

// headingLevel returns the markdown heading level of line (1-6), or 0 if
// line is not a valid ATX heading. A valid heading is 1-6 leading '#'
// characters followed by either end-of-line or a space.
func headingLevel(line string) int {
	i := 0
	for i < len(line) && line[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return 0
	}
	rest := line[i:]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return 0
	}
	return i
}

// splitterFunc is the minimal surface splitDocumentsHelper needs; it lets
// SplitDocuments implementations (and test doubles) share the same
// metadata-stamping logic without depending on the full Splitter
// interface.
type splitterFunc interface {
	Split(ctx context.Context, text string) ([]string, error)
}

// splitDocumentsHelper splits each Document's Content via s.Split and
// returns the resulting chunks as Documents, preserving the parent's
// metadata and adding parent_id, chunk_index, and chunk_total.
func splitDocumentsHelper(ctx context.Context, s splitterFunc, docs []schema.Document) ([]schema.Document, error) {
	var out []schema.Document
	for _, doc := range docs {
		chunks, err := s.Split(ctx, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("splitter: split document %q: %w", doc.ID, err)
		}
		for i, chunk := range chunks {
			meta := make(map[string]any, len(doc.Metadata)+3)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta["parent_id"] = doc.ID
			meta["chunk_index"] = i
			meta["chunk_total"] = len(chunks)
			out = append(out, schema.Document{
				ID:       fmt.Sprintf("%s-%d", doc.ID, i),
				Content:  chunk,
				Metadata: meta,
			})
		}
	}
	return out, nil
}
