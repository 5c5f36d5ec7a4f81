package schema

// ToolCall is a single invocation request emitted by a model: a name and a
// JSON-encoded argument object, tied to the model's response by ID.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult is the outcome of executing a ToolCall, fed back into the
// conversation as a ToolMessage keyed by CallID.
type ToolResult struct {
	CallID  string
	Content []ContentPart
	IsError bool
}

// ToolDefinition is the model-facing description of a callable tool: its
// name, a natural-language description, and a JSON Schema for its
// arguments.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}
