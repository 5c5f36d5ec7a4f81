package loader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/basalt-ai/basalt/schema"
)

// TextLoader reads a single plain-text file into one Document.
type TextLoader struct{}

// NewTextLoader returns a TextLoader.
func NewTextLoader() *TextLoader { return &TextLoader{} }

func (l *TextLoader) Load(_ context.Context, path string) ([]schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []schema.Document{{
		ID:      path,
		Content: string(content),
		Metadata: map[string]any{
			"format": "text",
			"name":   filepath.Base(path),
		},
	}}, nil
}

var _ Loader = (*TextLoader)(nil)
