package prompt

import (
	"strings"

	"github.com/basalt-ai/basalt/schema"
)

// Builder assembles a final message list from ordered slots: system
// prompt, tool definitions, static context, an optional cache breakpoint,
// dynamic context, and the user input — always in that fixed order,
// regardless of the order options were supplied in.
type Builder struct {
	systemPrompt    string
	hasSystemPrompt bool

	tools []schema.ToolDefinition

	staticContext []string

	cacheBreakpoint bool

	dynamicContext []schema.Message

	userInput    schema.Message
	hasUserInput bool
}

// Option configures a Builder slot.
type Option func(*Builder)

// NewBuilder constructs a Builder with the given options applied in order.
// Slot placement in Build's output does not depend on option order.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithSystemPrompt sets the leading system message.
func WithSystemPrompt(text string) Option {
	return func(b *Builder) {
		b.systemPrompt = text
		b.hasSystemPrompt = true
	}
}

// WithToolDefinitions renders the given tools into one system message
// describing the tools available to the model.
func WithToolDefinitions(tools []schema.ToolDefinition) Option {
	return func(b *Builder) {
		b.tools = tools
	}
}

// WithStaticContext adds one system message per non-empty string.
func WithStaticContext(docs []string) Option {
	return func(b *Builder) {
		b.staticContext = docs
	}
}

// WithCacheBreakpoint inserts a system message carrying
// Metadata["cache_breakpoint"] = true, marking a provider-side prompt
// cache boundary.
func WithCacheBreakpoint() Option {
	return func(b *Builder) {
		b.cacheBreakpoint = true
	}
}

// WithDynamicContext appends the given messages verbatim.
func WithDynamicContext(msgs []schema.Message) Option {
	return func(b *Builder) {
		b.dynamicContext = msgs
	}
}

// WithUserInput sets the final message in the built list.
func WithUserInput(msg schema.Message) Option {
	return func(b *Builder) {
		b.userInput = msg
		b.hasUserInput = true
	}
}

// Build assembles the configured slots into a message list.
func (b *Builder) Build() []schema.Message {
	var msgs []schema.Message

	if b.hasSystemPrompt {
		msgs = append(msgs, schema.NewSystemMessage(b.systemPrompt))
	}

	if len(b.tools) > 0 {
		msgs = append(msgs, schema.NewSystemMessage(renderToolDefinitions(b.tools)))
	}

	for _, doc := range b.staticContext {
		if doc == "" {
			continue
		}
		msgs = append(msgs, schema.NewSystemMessage(doc))
	}

	if b.cacheBreakpoint {
		bp := schema.NewSystemMessage("")
		bp.Metadata = map[string]any{"cache_breakpoint": true}
		msgs = append(msgs, bp)
	}

	msgs = append(msgs, b.dynamicContext...)

	if b.hasUserInput {
		msgs = append(msgs, b.userInput)
	}

	return msgs
}

func renderToolDefinitions(tools []schema.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("Available tools:")
	for _, t := range tools {
		b.WriteString("\n- ")
		b.WriteString(t.Name)
		if t.Description != "" {
			b.WriteString(": ")
			b.WriteString(t.Description)
		}
	}
	return b.String()
}
