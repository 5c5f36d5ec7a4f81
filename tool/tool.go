// Package tool defines the callable-tool abstraction shared by the agent
// runtime: a name/description/schema contract, the Result type tools
// return, and a Registry that resolves names to Tools.
package tool

import (
	"context"

	"github.com/basalt-ai/basalt/schema"
)

// Tool is anything an agent can invoke by name with a JSON-object argument
// map.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input map[string]any) (*Result, error)
}

// Result is the outcome of executing a Tool. IsError marks a tool-level
// failure (as opposed to a Go error, which marks an execution-framework
// failure); both end up as a schema.ToolMessage in the conversation.
type Result struct {
	Content []schema.ContentPart
	IsError bool
}

// TextResult wraps text as a successful Result.
func TextResult(text string) *Result {
	return &Result{Content: []schema.ContentPart{schema.TextPart{Text: text}}}
}

// ErrorResult wraps err's message as a failed Result.
func ErrorResult(err error) *Result {
	return &Result{
		Content: []schema.ContentPart{schema.TextPart{Text: err.Error()}},
		IsError: true,
	}
}

// ToDefinition converts a Tool into the wire-level schema.ToolDefinition a
// model is shown.
func ToDefinition(t Tool) schema.ToolDefinition {
	return schema.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}
