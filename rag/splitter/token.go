package splitter

import (
	"context"
	"strings"

	"github.com/basalt-ai/basalt/llm"
	"github.com/basalt-ai/basalt/schema"
)

// TokenSplitter splits text into chunks bounded by token count rather
// than character count, using a llm.Tokenizer to estimate how many
// tokens each word contributes.
type TokenSplitter struct {
	chunkSize    int
	chunkOverlap int
	tokenizer    llm.Tokenizer
}

// TokenOption configures a TokenSplitter.
type TokenOption func(*TokenSplitter)

// WithTokenChunkSize sets the maximum chunk size in tokens. Values <= 0
// are ignored.
func WithTokenChunkSize(size int) TokenOption {
	return func(s *TokenSplitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithTokenChunkOverlap sets how many trailing tokens of a chunk are
// carried into the next one. Negative values are ignored.
func WithTokenChunkOverlap(overlap int) TokenOption {
	return func(s *TokenSplitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithTokenizer overrides the tokenizer used to estimate token counts.
// A nil tokenizer is ignored and the default is kept.
func WithTokenizer(tokenizer llm.Tokenizer) TokenOption {
	return func(s *TokenSplitter) {
		if tokenizer != nil {
			s.tokenizer = tokenizer
		}
	}
}

// NewTokenSplitter builds a TokenSplitter from opts. Without
// WithTokenizer, it estimates token counts with llm.SimpleTokenizer.
func NewTokenSplitter(opts ...TokenOption) *TokenSplitter {
	s := &TokenSplitter{
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		tokenizer:    &llm.SimpleTokenizer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split breaks text into chunks of at most chunkSize tokens, accumulating
// whole words so no word is split across a token boundary. Empty or
// whitespace-only text yields zero chunks.
func (s *TokenSplitter) Split(_ context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	words := strings.Fields(text)
	counts := make([]int, len(words))
	total := 0
	for i, w := range words {
		counts[i] = s.tokenizer.Count(w)
		total += counts[i]
	}
	if total <= s.chunkSize {
		return []string{text}, nil
	}

	var chunks []string
	var current []string
	var currentCounts []int
	currentTokens := 0
	for i, w := range words {
		wt := counts[i]
		if len(current) > 0 && currentTokens+wt > s.chunkSize {
			chunks = append(chunks, strings.Join(current, " "))
			current, currentCounts, currentTokens = s.overlapWords(current, currentCounts)
		}
		current = append(current, w)
		currentCounts = append(currentCounts, wt)
		currentTokens += wt
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks, nil
}

// SplitDocuments splits every Document's Content and stamps parent/chunk
// metadata onto the resulting chunk Documents.
func (s *TokenSplitter) SplitDocuments(ctx context.Context, docs []schema.Document) ([]schema.Document, error) {
	return splitDocumentsHelper(ctx, s, docs)
}

// overlapWords returns the trailing words of a just-flushed chunk (and
// their token counts) to seed the next chunk, keeping their combined
// token count at or under chunkOverlap.
func (s *TokenSplitter) overlapWords(words []string, counts []int) ([]string, []int, int) {
	if s.chunkOverlap <= 0 {
		return nil, nil, 0
	}

	var keptWords []string
	var keptCounts []int
	tokens := 0
	for i := len(words) - 1; i >= 0; i-- {
		if tokens+counts[i] > s.chunkOverlap && len(keptWords) > 0 {
			break
		}
		keptWords = append([]string{words[i]}, keptWords...)
		keptCounts = append([]int{counts[i]}, keptCounts...)
		tokens += counts[i]
	}
	return keptWords, keptCounts, tokens
}
