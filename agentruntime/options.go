package agentruntime

import (
	"github.com/basalt-ai/basalt/llm"
	"github.com/basalt-ai/basalt/schema"
	"github.com/basalt-ai/basalt/state"
	"github.com/basalt-ai/basalt/tool"
)

const (
	defaultMaxIterations  = 25
	defaultToolRetryLimit = 3
)

// Option configures a Runtime at construction time.
type Option func(*Runtime)

// WithModel sets the chat model the runtime completes against. Required.
func WithModel(m llm.ChatModel) Option {
	return func(r *Runtime) { r.model = m }
}

// WithTools registers local tools. Duplicate names (including against the
// built-in stop tool, or another WithTools/WithToolboxes call) fail New.
func WithTools(tools ...tool.Tool) Option {
	return func(r *Runtime) { r.pendingTools = append(r.pendingTools, tools...) }
}

// WithToolboxes registers toolboxes resolved once at New, via ListTools.
func WithToolboxes(boxes ...Toolbox) Option {
	return func(r *Runtime) { r.pendingToolboxes = append(r.pendingToolboxes, boxes...) }
}

// WithSystemPrompt overrides the default system prompt. Ignored if the
// runtime is resumed from history that already starts with a system
// message.
func WithSystemPrompt(text string) Option {
	return func(r *Runtime) { r.systemPrompt = text }
}

// WithMaxIterations caps the number of assistant completions per query
// before the runtime stops with StopMaxIterations. Default 25.
func WithMaxIterations(n int) Option {
	return func(r *Runtime) { r.maxIterations = n }
}

// WithToolRetryLimit caps how many times identical malformed tool
// arguments (same tool name, same raw argument bytes) get fed back to the
// model before the error message notes the budget is exhausted. Default 3.
func WithToolRetryLimit(n int) Option {
	return func(r *Runtime) { r.toolRetryLimit = n }
}

// WithToolConcurrency bounds how many of a single completion's tool calls
// run concurrently. Default runtime.NumCPU().
func WithToolConcurrency(n int) Option {
	return func(r *Runtime) { r.toolConcurrency = n }
}

// WithHooks adds lifecycle hooks, composing with any hooks already set by
// an earlier WithHooks option.
func WithHooks(h Hooks) Option {
	return func(r *Runtime) { r.hooks = ComposeHooks(r.hooks, h) }
}

// WithHistory seeds the runtime with a prior message history, e.g.
// restored from a state.Store, so Run resumes the conversation instead of
// starting one. A leading system message is preserved as-is; otherwise
// one is prepended from the configured (or default) system prompt on the
// next Run.
func WithHistory(msgs []schema.Message) Option {
	return func(r *Runtime) { r.history = append([]schema.Message{}, msgs...) }
}

// WithStateStore persists history under key in store after every appended
// message, and restores it at New if no WithHistory was given and key is
// already present. Persistence after construction is best-effort: failures
// are reported through Hooks.OnPersistError rather than aborting the run.
// A failure to restore at New, by contrast, fails construction, since the
// caller explicitly asked for that history.
func WithStateStore(store state.Store, key string) Option {
	return func(r *Runtime) {
		r.stateStore = store
		r.stateKey = key
	}
}
