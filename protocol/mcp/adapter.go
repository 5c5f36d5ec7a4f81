package mcp

import (
	"context"

	"github.com/basalt-ai/basalt/schema"
	"github.com/basalt-ai/basalt/tool"
)

// FromMCP connects to the MCP server at serverURL, initializes the
// session, lists its tools, and adapts each into a tool.Tool backed by a
// tools/call round-trip.
func FromMCP(ctx context.Context, serverURL string) ([]tool.Tool, error) {
	client := NewClient(serverURL)
	if _, err := client.Initialize(ctx); err != nil {
		return nil, err
	}
	descs, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]tool.Tool, len(descs))
	for i, d := range descs {
		tools[i] = &remoteTool{client: client, desc: d}
	}
	return tools, nil
}

// remoteTool adapts a remote MCP tool into the local tool.Tool contract.
type remoteTool struct {
	client *MCPClient
	desc   ToolInfo
}

func (t *remoteTool) Name() string              { return t.desc.Name }
func (t *remoteTool) Description() string        { return t.desc.Description }
func (t *remoteTool) InputSchema() map[string]any { return t.desc.InputSchema }

func (t *remoteTool) Execute(ctx context.Context, input map[string]any) (*tool.Result, error) {
	result, err := t.client.CallTool(ctx, t.desc.Name, input)
	if err != nil {
		return nil, err
	}

	parts := make([]schema.ContentPart, 0, len(result.Content))
	for _, c := range result.Content {
		if c.Type == "text" || c.Type == "" {
			parts = append(parts, schema.TextPart{Text: c.Text})
		}
	}
	return &tool.Result{Content: parts, IsError: result.IsError}, nil
}
