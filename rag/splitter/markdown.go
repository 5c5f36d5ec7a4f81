package splitter

import (
	"context"
	"strings"

	"github.com/basalt-ai/basalt/schema"
)

// MarkdownSplitter splits text at markdown ATX heading boundaries (# through
// ######), optionally prepending ancestor headers to each section so a
// chunk retains the context of where it sits in the document. Sections
// that still exceed chunkSize are further split by a RecursiveSplitter.
type MarkdownSplitter struct {
	chunkSize       int
	chunkOverlap    int
	preserveHeaders bool
}

// MarkdownOption configures a MarkdownSplitter.
type MarkdownOption func(*MarkdownSplitter)

// WithMarkdownChunkSize sets the maximum section length in characters
// before it is recursively split. Values <= 0 are ignored.
func WithMarkdownChunkSize(size int) MarkdownOption {
	return func(s *MarkdownSplitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithMarkdownChunkOverlap sets the overlap used when a section has to be
// recursively split. Negative values are ignored.
func WithMarkdownChunkOverlap(overlap int) MarkdownOption {
	return func(s *MarkdownSplitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithPreserveHeaders controls whether a section's ancestor headings are
// prepended to its chunk, giving the chunk standalone context.
func WithPreserveHeaders(preserve bool) MarkdownOption {
	return func(s *MarkdownSplitter) {
		s.preserveHeaders = preserve
	}
}

// NewMarkdownSplitter builds a MarkdownSplitter from opts. Header
// preservation defaults to on.
func NewMarkdownSplitter(opts ...MarkdownOption) *MarkdownSplitter {
	s := &MarkdownSplitter{
		chunkSize:       defaultChunkSize,
		chunkOverlap:    defaultChunkOverlap,
		preserveHeaders: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// section is one heading-delimited region of a document.
type section struct {
	ancestors []string // enclosing heading lines, outermost first
	heading   string   // this section's own heading line, "" if none
	body      []string
}

// Split breaks text into one chunk per heading section, recursively
// splitting any section whose content exceeds chunkSize. Empty or
// whitespace-only text yields zero chunks.
func (s *MarkdownSplitter) Split(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sections := splitIntoSections(text)

	var chunks []string
	for _, sec := range sections {
		var b strings.Builder
		if s.preserveHeaders {
			for _, h := range sec.ancestors {
				b.WriteString(h)
				b.WriteString("\n\n")
			}
		}
		if sec.heading != "" {
			b.WriteString(sec.heading)
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(strings.Join(sec.body, "\n")))
		content := strings.TrimSpace(b.String())
		if content == "" {
			continue
		}

		if len(content) > s.chunkSize {
			sub, err := s.splitLarge(ctx, content)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, sub...)
			continue
		}
		chunks = append(chunks, content)
	}
	return chunks, nil
}

// SplitDocuments splits every Document's Content and stamps parent/chunk
// metadata onto the resulting chunk Documents.
func (s *MarkdownSplitter) SplitDocuments(ctx context.Context, docs []schema.Document) ([]schema.Document, error) {
	return splitDocumentsHelper(ctx, s, docs)
}

// splitLarge further splits a section that exceeds chunkSize, reusing the
// recursive splitter's separator hierarchy rather than inventing another
// one.
func (s *MarkdownSplitter) splitLarge(ctx context.Context, content string) ([]string, error) {
	rs := NewRecursiveSplitter(WithChunkSize(s.chunkSize), WithChunkOverlap(s.chunkOverlap))
	return rs.Split(ctx, content)
}

// splitIntoSections walks text line by line, starting a new section at
// every heading and tracking the stack of enclosing headings so each
// section knows its ancestors.
func splitIntoSections(text string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	var stack []string
	var levels []int
	var current *section

	flush := func() {
		if current != nil {
			sections = append(sections, *current)
		}
	}

	for _, line := range lines {
		lvl := headingLevel(line)
		if lvl == 0 {
			if current == nil {
				current = &section{}
			}
			current.body = append(current.body, line)
			continue
		}

		flush()
		for len(levels) > 0 && levels[len(levels)-1] >= lvl {
			stack = stack[:len(stack)-1]
			levels = levels[:len(levels)-1]
		}
		ancestors := append([]string(nil), stack...)
		current = &section{ancestors: ancestors, heading: line}
		stack = append(stack, line)
		levels = append(levels, lvl)
	}
	flush()
	return sections
}
