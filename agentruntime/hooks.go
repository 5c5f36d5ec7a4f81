package agentruntime

import (
	"context"

	"github.com/basalt-ai/basalt/internal/hookutil"
	"github.com/basalt-ai/basalt/schema"
	"github.com/basalt-ai/basalt/tool"
)

// Hooks provides optional callback functions invoked at each transition of
// the Running state machine. All fields are optional; nil hooks are
// skipped. Hooks are composable via ComposeHooks.
type Hooks struct {
	// OnStart is called once when Run is invoked, before the state moves
	// past Pending. Returning an error aborts the run with StopError
	// before any completion is requested.
	OnStart func(ctx context.Context, input string) error

	// BeforeAll is called once the initial message history has been
	// assembled (system prompt, history, and the new user input) and
	// before the completion/tool-dispatch loop begins.
	BeforeAll func(ctx context.Context, messages []schema.Message) error

	// OnNewMessage is called every time a message is appended to the
	// running history: the user's input, each completion, and each tool
	// result.
	OnNewMessage func(ctx context.Context, msg schema.Message)

	// BeforeCompletion is called before each call to the model.
	BeforeCompletion func(ctx context.Context, messages []schema.Message) error
	// AfterCompletion is called after each completion returns successfully.
	AfterCompletion func(ctx context.Context, msg *schema.AIMessage) error

	// BeforeTool is called before a requested tool call is dispatched.
	BeforeTool func(ctx context.Context, call schema.ToolCall) error
	// AfterTool is called after a dispatched tool call returns, whether
	// it succeeded or failed.
	AfterTool func(ctx context.Context, call schema.ToolCall, result *tool.Result, err error) error

	// OnStop is called exactly once when the runtime reaches Stopped,
	// regardless of reason.
	OnStop func(ctx context.Context, reason StopReason, err error)

	// OnPersistError is called whenever a WithStateStore-configured store
	// fails to save history after a message is appended. Persistence is
	// best-effort: the run continues regardless of this hook's presence.
	OnPersistError func(ctx context.Context, err error)
}

// ComposeHooks merges multiple Hooks into a single Hooks value. Callbacks
// are invoked in the order the hooks were provided. For error-returning
// callbacks the first non-nil error short-circuits the remaining hooks of
// that callback; void callbacks all run regardless.
func ComposeHooks(hooks ...Hooks) Hooks {
	h := append([]Hooks{}, hooks...)
	return Hooks{
		OnStart: hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, string) error {
			return hk.OnStart
		}),
		BeforeAll: hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, []schema.Message) error {
			return hk.BeforeAll
		}),
		OnNewMessage: hookutil.ComposeVoid1(h, func(hk Hooks) func(context.Context, schema.Message) {
			return hk.OnNewMessage
		}),
		BeforeCompletion: hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, []schema.Message) error {
			return hk.BeforeCompletion
		}),
		AfterCompletion: hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, *schema.AIMessage) error {
			return hk.AfterCompletion
		}),
		BeforeTool: hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, schema.ToolCall) error {
			return hk.BeforeTool
		}),
		AfterTool: hookutil.ComposeError3(h, func(hk Hooks) func(context.Context, schema.ToolCall, *tool.Result, error) error {
			return hk.AfterTool
		}),
		OnStop: hookutil.ComposeVoid2(h, func(hk Hooks) func(context.Context, StopReason, error) {
			return hk.OnStop
		}),
		OnPersistError: hookutil.ComposeVoid1(h, func(hk Hooks) func(context.Context, error) {
			return hk.OnPersistError
		}),
	}
}
