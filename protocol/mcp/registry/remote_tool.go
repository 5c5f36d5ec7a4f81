package registry

import (
	"context"

	"github.com/basalt-ai/basalt/protocol/mcp"
	"github.com/basalt-ai/basalt/schema"
	"github.com/basalt-ai/basalt/tool"
)

// remoteTool adapts a tool discovered on a remote MCP server into the
// local tool.Tool contract, dispatching Execute back to that server.
type remoteTool struct {
	client MCPClientInterface
	info   mcp.ToolInfo
}

func newRemoteTool(client MCPClientInterface, info mcp.ToolInfo) *remoteTool {
	return &remoteTool{client: client, info: info}
}

func (t *remoteTool) Name() string              { return t.info.Name }
func (t *remoteTool) Description() string        { return t.info.Description }
func (t *remoteTool) InputSchema() map[string]any { return t.info.InputSchema }

func (t *remoteTool) Execute(ctx context.Context, input map[string]any) (*tool.Result, error) {
	result, err := t.client.CallTool(ctx, t.info.Name, input)
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

var _ tool.Tool = (*remoteTool)(nil)
