package agentruntime

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/schema"
	"github.com/basalt-ai/basalt/tool"
)

// dispatchItem is one tool call pending execution, already preprocessed.
// skip is set when argument parsing failed: the call is never executed,
// its ToolMessage is produced directly.
type dispatchItem struct {
	call           schema.ToolCall
	args           map[string]any
	skip           *schema.ToolMessage
	retryExhausted bool
}

// dispatchTools preprocesses and executes the k tool calls from one
// completion. Calls run concurrently (bounded by toolConcurrency) but
// core.BatchInvoke returns one result per input index, so results are
// appended to history in call order regardless of completion order,
// keeping every call/result pair balanced. It reports whether the
// built-in stop tool was among the calls, and whether any call's
// malformed-argument retry budget was exhausted this round.
func (r *Runtime) dispatchTools(ctx context.Context, calls []schema.ToolCall) (stopRequested bool, retryExhausted bool, err error) {
	items := make([]dispatchItem, len(calls))
	for i, call := range calls {
		args, perr := parseArgsDedup(call.Arguments)
		if perr != nil {
			msg, exhausted := r.malformedArgsResult(call, perr)
			items[i] = dispatchItem{call: call, skip: msg, retryExhausted: exhausted}
			continue
		}
		items[i] = dispatchItem{call: call, args: args}
	}

	results := core.BatchInvoke(ctx, r.executeOne, items, core.BatchOptions{
		MaxConcurrency: r.toolConcurrency,
	})

	for i, res := range results {
		msg := res.Value
		if msg == nil {
			// BatchInvoke only produces a nil Value alongside a non-nil
			// Err (e.g. the parent context was cancelled before this
			// item's goroutine ran); executeOne itself never returns a
			// bare error.
			msg = &schema.ToolMessage{
				Parts:      []schema.ContentPart{schema.TextPart{Text: res.Err.Error()}},
				ToolCallID: items[i].call.ID,
				Metadata:   map[string]any{"is_error": true},
			}
		}
		r.appendMessage(ctx, msg)
		if items[i].call.Name == stopToolName {
			stopRequested = true
		}
		if items[i].retryExhausted {
			retryExhausted = true
		}
	}
	return stopRequested, retryExhausted, nil
}

func (r *Runtime) executeOne(ctx context.Context, it dispatchItem) (*schema.ToolMessage, error) {
	if it.skip != nil {
		return it.skip, nil
	}

	if err := r.callBeforeTool(ctx, it.call); err != nil {
		return r.errorResult(it.call, err), nil
	}

	t, err := r.registry.Get(it.call.Name)
	if err != nil {
		_ = r.callAfterTool(ctx, it.call, nil, err)
		return r.errorResult(it.call, err), nil
	}

	result, execErr := t.Execute(ctx, it.args)
	if hookErr := r.callAfterTool(ctx, it.call, result, execErr); hookErr != nil {
		execErr = hookErr
	}
	if execErr != nil {
		return r.errorResult(it.call, execErr), nil
	}

	return &schema.ToolMessage{
		Parts:      result.Content,
		ToolCallID: it.call.ID,
		Metadata:   map[string]any{"is_error": result.IsError},
	}, nil
}

func (r *Runtime) errorResult(call schema.ToolCall, err error) *schema.ToolMessage {
	return &schema.ToolMessage{
		Parts:      []schema.ContentPart{schema.TextPart{Text: err.Error()}},
		ToolCallID: call.ID,
		Metadata:   map[string]any{"is_error": true},
	}
}

// malformedArgsResult builds the ToolMessage fed back for a call whose
// arguments failed to parse, applying the tool-retry policy: retry
// identity is (tool name, raw-argument hash), so two independently issued
// calls with identical malformed arguments share a retry budget. The
// second return value reports whether that budget is now exhausted, so
// the caller can stop the run instead of looping forever.
func (r *Runtime) malformedArgsResult(call schema.ToolCall, parseErr error) (*schema.ToolMessage, bool) {
	key := retryKey(call.Name, call.Arguments)
	r.retryAttempts[key]++
	attempts := r.retryAttempts[key]

	text := parseErr.Error()
	exhausted := attempts > r.toolRetryLimit
	if exhausted {
		text = fmt.Sprintf("%s (retry budget of %d exhausted for these arguments)", text, r.toolRetryLimit)
	}
	return &schema.ToolMessage{
		Parts:      []schema.ContentPart{schema.TextPart{Text: text}},
		ToolCallID: call.ID,
		Metadata:   map[string]any{"is_error": true},
	}, exhausted
}

func retryKey(toolName, rawArgs string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(rawArgs))
	return fmt.Sprintf("%s:%x", toolName, h.Sum64())
}

func (r *Runtime) callBeforeTool(ctx context.Context, call schema.ToolCall) error {
	if r.hooks.BeforeTool == nil {
		return nil
	}
	return r.hooks.BeforeTool(ctx, call)
}

func (r *Runtime) callAfterTool(ctx context.Context, call schema.ToolCall, result *tool.Result, err error) error {
	if r.hooks.AfterTool == nil {
		return nil
	}
	return r.hooks.AfterTool(ctx, call, result, err)
}
