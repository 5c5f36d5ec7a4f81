package agentruntime

import (
	"context"
	goruntime "runtime"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/llm"
	"github.com/basalt-ai/basalt/prompt"
	"github.com/basalt-ai/basalt/schema"
	"github.com/basalt-ai/basalt/state"
	"github.com/basalt-ai/basalt/tool"
)

const stopToolName = "stop"

// Runtime drives a tool-using conversation with a chat model to
// completion. It is not safe for concurrent calls to Run/Redrive from
// multiple goroutines; construct one Runtime per in-flight conversation.
type Runtime struct {
	model           llm.ChatModel
	registry        *tool.Registry
	toolDefs        []schema.ToolDefinition
	toolboxes       []Toolbox
	systemPrompt    string
	maxIterations   int
	toolRetryLimit  int
	toolConcurrency int
	hooks           Hooks

	pendingTools     []tool.Tool
	pendingToolboxes []Toolbox

	state      State
	phase      Phase
	stopReason StopReason
	startedOnce bool

	history          []schema.Message
	lastUserBoundary int
	retryAttempts    map[string]int

	stateStore state.Store
	stateKey   string
}

// New builds a Runtime from opts. Toolboxes are resolved via ListTools
// during this call, so it takes ctx. It fails if no model was supplied or
// if any two tools (local or toolbox-resolved, including the built-in
// stop tool) share a name.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		maxIterations:   defaultMaxIterations,
		toolRetryLimit:  defaultToolRetryLimit,
		toolConcurrency: goruntime.NumCPU(),
		retryAttempts:   make(map[string]int),
		state:           Pending,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.model == nil {
		return nil, core.NewError("agentruntime.new", core.ErrInvalidInput, "a model is required", nil)
	}

	reg := tool.NewRegistry()
	for _, t := range r.pendingTools {
		if err := reg.Add(t); err != nil {
			return nil, core.NewError("agentruntime.new", core.ErrInvalidInput, "registering tool", err)
		}
	}
	for _, tb := range r.pendingToolboxes {
		resolved, err := tb.ListTools(ctx)
		if err != nil {
			return nil, core.NewError("agentruntime.new", core.ErrToolboxListFailed, "resolving toolbox", err)
		}
		for _, t := range resolved {
			if err := reg.Add(t); err != nil {
				return nil, core.NewError("agentruntime.new", core.ErrInvalidInput, "registering toolbox tool", err)
			}
		}
		r.toolboxes = append(r.toolboxes, tb)
	}
	if err := reg.Add(stopTool{}); err != nil {
		return nil, core.NewError("agentruntime.new", core.ErrInvalidInput, "registering built-in stop tool", err)
	}
	r.registry = reg

	defs := make([]schema.ToolDefinition, 0, len(reg.All()))
	for _, t := range reg.All() {
		defs = append(defs, tool.ToDefinition(t))
	}
	r.toolDefs = defs

	if r.systemPrompt == "" {
		r.systemPrompt = defaultSystemPrompt()
	}

	if r.stateStore != nil && len(r.history) == 0 {
		restored, err := r.loadHistory(ctx)
		if err != nil {
			return nil, core.NewError("agentruntime.new", core.ErrInvalidInput, "restoring history from state store", err)
		}
		r.history = restored
	}

	return r, nil
}

// loadHistory fetches and type-asserts the history slice stored under
// r.stateKey, returning nil (not an error) if the key is unset.
func (r *Runtime) loadHistory(ctx context.Context) ([]schema.Message, error) {
	val, err := r.stateStore.Get(ctx, r.stateKey)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	msgs, ok := val.([]schema.Message)
	if !ok {
		return nil, core.NewError("agentruntime.loadhistory", core.ErrInvalidInput, "stored value is not a []schema.Message", nil)
	}
	return append([]schema.Message{}, msgs...), nil
}

// persistHistory best-effort saves the current history to the configured
// state store, reporting failures via Hooks.OnPersistError rather than
// returning an error to the caller.
func (r *Runtime) persistHistory(ctx context.Context) {
	if r.stateStore == nil {
		return
	}
	if err := r.stateStore.Set(ctx, r.stateKey, r.History()); err != nil {
		if r.hooks.OnPersistError != nil {
			r.hooks.OnPersistError(ctx, err)
		}
	}
}

// State returns the runtime's current top-level state.
func (r *Runtime) State() State { return r.state }

// Phase returns the current Running sub-phase, or PhaseNone outside Running.
func (r *Runtime) Phase() Phase { return r.phase }

// StopReason returns why the runtime last reached Stopped. It is only
// meaningful once State returns Stopped.
func (r *Runtime) StopReason() StopReason { return r.stopReason }

// History returns a copy of the accumulated message history.
func (r *Runtime) History() []schema.Message {
	return append([]schema.Message{}, r.history...)
}

// Close closes every toolbox resolved at New, tolerating repeat calls.
func (r *Runtime) Close(ctx context.Context) error {
	var firstErr error
	for _, tb := range r.toolboxes {
		if err := tb.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run appends input as a new user turn and drives completion/tool-dispatch
// until the runtime reaches Stopped, returning the final assistant
// message. It may be called again after Stopped to continue the
// conversation with a fresh query; prior history (including any tool
// results already appended) is retained.
func (r *Runtime) Run(ctx context.Context, input string) (*schema.AIMessage, error) {
	if err := r.callOnStart(ctx, input); err != nil {
		r.transitionStopped(ctx, StopError, err)
		return nil, err
	}

	r.state = Running
	r.phase = PhaseCompleting

	r.ensureSystemPrefix(ctx)

	r.appendMessage(ctx, schema.NewHumanMessage(input))
	r.lastUserBoundary = len(r.history)

	if !r.startedOnce {
		r.startedOnce = true
		if err := r.callBeforeAll(ctx, r.History()); err != nil {
			r.transitionStopped(ctx, StopError, err)
			return nil, err
		}
	}

	return r.loop(ctx)
}

// Redrive pops any messages appended since the last user turn began and
// re-enters Completing, for manual retry after a transient failure. It
// requires the runtime to currently be Stopped.
func (r *Runtime) Redrive(ctx context.Context) (*schema.AIMessage, error) {
	if r.state != Stopped {
		return nil, core.NewError("agentruntime.redrive", core.ErrInvalidInput, "redrive requires a stopped runtime", nil)
	}
	r.history = r.history[:r.lastUserBoundary]
	r.persistHistory(ctx)
	r.state = Running
	return r.loop(ctx)
}

// ensureSystemPrefix prepends the system prompt and tool-definition
// messages the first time history does not already start with a system
// message (i.e. on a brand new Runtime, or one resumed via WithHistory
// from a history that never had one).
func (r *Runtime) ensureSystemPrefix(ctx context.Context) {
	if len(r.history) > 0 && r.history[0].GetRole() == schema.RoleSystem {
		return
	}
	opts := []prompt.Option{prompt.WithSystemPrompt(r.systemPrompt)}
	if len(r.toolDefs) > 0 {
		opts = append(opts, prompt.WithToolDefinitions(r.toolDefs))
	}
	prefix := prompt.NewBuilder(opts...).Build()

	// Builder appends in slot order after any existing content, but here
	// it is only ever invoked against an empty/no-system history, so the
	// prefix is exactly the messages to prepend.
	r.history = append(prefix, r.history...)
	for _, m := range prefix {
		if r.hooks.OnNewMessage != nil {
			r.hooks.OnNewMessage(ctx, m)
		}
	}
	r.persistHistory(ctx)
}

func (r *Runtime) loop(ctx context.Context) (*schema.AIMessage, error) {
	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			r.transitionStopped(ctx, StopCancelled, err)
			return nil, err
		}

		r.phase = PhaseCompleting
		if err := r.callBeforeCompletion(ctx, r.History()); err != nil {
			r.transitionStopped(ctx, StopError, err)
			return nil, err
		}

		resp, err := r.model.BindTools(r.toolDefs).Generate(ctx, r.history)
		if err != nil {
			r.transitionStopped(ctx, StopError, err)
			return nil, err
		}
		if err := r.callAfterCompletion(ctx, resp); err != nil {
			r.transitionStopped(ctx, StopError, err)
			return nil, err
		}
		r.appendMessage(ctx, resp)

		iterations++
		if iterations > r.maxIterations {
			r.balanceOpenCalls(ctx, resp.ToolCalls, "iteration limit reached before this call produced a result")
			r.transitionStopped(ctx, StopMaxIterations, nil)
			return resp, nil
		}

		if len(resp.ToolCalls) == 0 {
			r.transitionStopped(ctx, StopDone, nil)
			return resp, nil
		}

		r.phase = PhaseInvokingTools
		stopRequested, retryExhausted, err := r.dispatchTools(ctx, resp.ToolCalls)
		if err != nil {
			r.transitionStopped(ctx, StopError, err)
			return nil, err
		}
		if retryExhausted {
			r.transitionStopped(ctx, StopToolError, nil)
			return resp, nil
		}
		if stopRequested {
			r.transitionStopped(ctx, StopToolRequested, nil)
			return resp, nil
		}
	}
}

func (r *Runtime) balanceOpenCalls(ctx context.Context, calls []schema.ToolCall, reason string) {
	for _, call := range calls {
		r.appendMessage(ctx, &schema.ToolMessage{
			Parts:      []schema.ContentPart{schema.TextPart{Text: reason}},
			ToolCallID: call.ID,
			Metadata:   map[string]any{"is_error": true},
		})
	}
}

func (r *Runtime) transitionStopped(ctx context.Context, reason StopReason, err error) {
	r.state = Stopped
	r.phase = PhaseNone
	r.stopReason = reason
	if r.hooks.OnStop != nil {
		r.hooks.OnStop(ctx, reason, err)
	}
}

func (r *Runtime) appendMessage(ctx context.Context, msg schema.Message) {
	r.history = append(r.history, msg)
	if r.hooks.OnNewMessage != nil {
		r.hooks.OnNewMessage(ctx, msg)
	}
	r.persistHistory(ctx)
}

func (r *Runtime) callOnStart(ctx context.Context, input string) error {
	if r.hooks.OnStart == nil {
		return nil
	}
	return r.hooks.OnStart(ctx, input)
}

func (r *Runtime) callBeforeAll(ctx context.Context, msgs []schema.Message) error {
	if r.hooks.BeforeAll == nil {
		return nil
	}
	return r.hooks.BeforeAll(ctx, msgs)
}

func (r *Runtime) callBeforeCompletion(ctx context.Context, msgs []schema.Message) error {
	if r.hooks.BeforeCompletion == nil {
		return nil
	}
	return r.hooks.BeforeCompletion(ctx, msgs)
}

func (r *Runtime) callAfterCompletion(ctx context.Context, msg *schema.AIMessage) error {
	if r.hooks.AfterCompletion == nil {
		return nil
	}
	return r.hooks.AfterCompletion(ctx, msg)
}

// stopTool is the built-in tool the model calls to end a run deliberately.
type stopTool struct{}

func (stopTool) Name() string        { return stopToolName }
func (stopTool) Description() string { return "Ends the current turn. Call this once the goal is achieved or user feedback is required." }
func (stopTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (stopTool) Execute(_ context.Context, _ map[string]any) (*tool.Result, error) {
	return tool.TextResult("stopped"), nil
}

var _ tool.Tool = stopTool{}

const defaultSystemPromptTemplate = `You are an autonomous agent acting as {{ role }}.

Guidelines:
{% for g in guidelines %}- {{ g }}
{% endfor %}
Constraints:
{% for c in constraints %}- {{ c }}
{% endfor %}`

func defaultSystemPrompt() string {
	tpl := prompt.Template{
		Name:    "agentruntime.default_system_prompt",
		Content: defaultSystemPromptTemplate,
	}
	out, err := tpl.Render(map[string]any{
		"role": "a careful, tool-using assistant",
		"guidelines": []string{
			"Think step by step before acting.",
			"Prefer calling a tool over guessing when a tool can supply the answer.",
		},
		"constraints": []string{
			"Do not fabricate facts or assume unstated information.",
			"Call the stop tool once the goal is achieved or user feedback is required.",
		},
	})
	if err != nil {
		return "You are a careful, tool-using assistant. Think step by step, never fabricate information, and call the stop tool once the goal is achieved or feedback is required."
	}
	return out
}
