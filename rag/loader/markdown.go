package loader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/basalt-ai/basalt/schema"
)

// MarkdownLoader reads a single Markdown file into one Document, kept
// whole (splitting by heading is the chunker's job, not the loader's).
type MarkdownLoader struct{}

// NewMarkdownLoader returns a MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader { return &MarkdownLoader{} }

func (l *MarkdownLoader) Load(_ context.Context, path string) ([]schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []schema.Document{{
		ID:      path,
		Content: string(content),
		Metadata: map[string]any{
			"format": "markdown",
			"name":   filepath.Base(path),
		},
	}}, nil
}

var _ Loader = (*MarkdownLoader)(nil)
