package splitter

import (
	"context"
	"strings"

	"github.com/basalt-ai/basalt/schema"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// defaultSeparators is the recursive splitter's separator hierarchy, tried
// in order from the coarsest (paragraph breaks) to the finest (nothing,
// meaning character-level).
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter splits text by walking a hierarchy of separators,
// preferring the coarsest one that still keeps chunks under chunkSize and
// falling back to character-level splitting when none fit.
type RecursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// RecursiveOption configures a RecursiveSplitter.
type RecursiveOption func(*RecursiveSplitter)

// WithChunkSize sets the maximum chunk length in characters. Values <= 0
// are ignored and the default is kept.
func WithChunkSize(size int) RecursiveOption {
	return func(s *RecursiveSplitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets how many trailing characters of a chunk are
// carried into the next one. Negative values are ignored.
func WithChunkOverlap(overlap int) RecursiveOption {
	return func(s *RecursiveSplitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithSeparators overrides the separator hierarchy. An empty slice is
// ignored and the default hierarchy is kept.
func WithSeparators(separators []string) RecursiveOption {
	return func(s *RecursiveSplitter) {
		if len(separators) > 0 {
			s.separators = separators
		}
	}
}

// NewRecursiveSplitter builds a RecursiveSplitter from opts.
func NewRecursiveSplitter(opts ...RecursiveOption) *RecursiveSplitter {
	s := &RecursiveSplitter{
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		separators:   append([]string(nil), defaultSeparators...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split breaks text into chunks of at most chunkSize characters, trying
// each separator in turn before falling back to character-level splits.
// Empty or whitespace-only text yields zero chunks without error.
func (s *RecursiveSplitter) Split(_ context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}, nil
	}
	return s.splitRecursive(text, s.separators), nil
}

// SplitDocuments splits every Document's Content and stamps parent/chunk
// metadata onto the resulting chunk Documents.
func (s *RecursiveSplitter) SplitDocuments(ctx context.Context, docs []schema.Document) ([]schema.Document, error) {
	return splitDocumentsHelper(ctx, s, docs)
}

func (s *RecursiveSplitter) splitRecursive(text string, separators []string) []string {
	if len(separators) == 0 {
		return s.splitByCharacters(text)
	}

	sep := separators[0]
	rest := separators[1:]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return s.splitRecursive(text, rest)
	}

	var chunks []string
	var current strings.Builder
	for i, part := range parts {
		if sep != "" && i < len(parts)-1 {
			part += sep
		}
		if current.Len() > 0 && current.Len()+len(part) > s.chunkSize {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()
			current.WriteString(s.getOverlap(chunk))
		}

		if len(part) > s.chunkSize {
			sub := s.splitRecursive(part, rest)
			for i := 0; i < len(sub)-1; i++ {
				if current.Len() > 0 {
					chunks = append(chunks, current.String())
					current.Reset()
				}
				chunks = append(chunks, sub[i])
			}
			if len(sub) > 0 {
				current.WriteString(sub[len(sub)-1])
			}
			continue
		}
		current.WriteString(part)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

func (s *RecursiveSplitter) splitByCharacters(text string) []string {
	var chunks []string
	var current strings.Builder
	for _, r := range text {
		if current.Len() > 0 && current.Len()+len(string(r)) > s.chunkSize {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()
			current.WriteString(s.getOverlap(chunk))
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// getOverlap returns the trailing chunkOverlap characters of text, used
// to seed the next chunk so context isn't lost at a boundary. It returns
// "" when chunkOverlap is zero or would consume all of text.
func (s *RecursiveSplitter) getOverlap(text string) string {
	if s.chunkOverlap <= 0 {
		return ""
	}
	runes := []rune(text)
	if s.chunkOverlap >= len(runes) {
		return ""
	}
	return string(runes[len(runes)-s.chunkOverlap:])
}
