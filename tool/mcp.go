package tool

import (
	"context"

	"github.com/basalt-ai/basalt/core"
)

type mcpOptions struct {
	sessionID   string
	lastEventID string
	headers     map[string]string
}

// MCPOption configures an MCPClient.
type MCPOption func(*mcpOptions)

// WithSessionID attaches an existing MCP session to reconnect to.
func WithSessionID(id string) MCPOption {
	return func(o *mcpOptions) { o.sessionID = id }
}

// WithLastEventID resumes a streamable-HTTP session from the given SSE
// event id.
func WithLastEventID(id string) MCPOption {
	return func(o *mcpOptions) { o.lastEventID = id }
}

// WithMCPHeaders merges headers into every request the client makes.
func WithMCPHeaders(headers map[string]string) MCPOption {
	return func(o *mcpOptions) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// MCPClient is a streamable-HTTP Model Context Protocol client. The wire
// transport is not implemented yet; this type pins down the shape a
// toolbox adapter binds to.
type MCPClient struct {
	serverURL string
	opts      mcpOptions
}

// NewMCPClient builds a client for the MCP server at serverURL.
func NewMCPClient(serverURL string, opts ...MCPOption) *MCPClient {
	o := mcpOptions{headers: make(map[string]string)}
	for _, opt := range opts {
		opt(&o)
	}
	return &MCPClient{serverURL: serverURL, opts: o}
}

func (c *MCPClient) Connect(ctx context.Context) error {
	return core.NewError("mcp.connect", core.ErrIO, "MCP streamable-HTTP transport not implemented", nil)
}

func (c *MCPClient) ListTools(ctx context.Context) ([]Tool, error) {
	return nil, core.NewError("mcp.list_tools", core.ErrToolboxListFailed, "MCP streamable-HTTP transport not implemented", nil)
}

func (c *MCPClient) ExecuteTool(ctx context.Context, name string, input map[string]any) (*Result, error) {
	return nil, core.NewError("mcp.execute_tool", core.ErrIO, "MCP streamable-HTTP transport not implemented", nil)
}

func (c *MCPClient) Close(ctx context.Context) error {
	return core.NewError("mcp.close", core.ErrToolboxDisconnected, "MCP streamable-HTTP transport not implemented", nil)
}

// FromMCP connects to the MCP server at serverURL and adapts its tool list
// into Tool values.
func FromMCP(ctx context.Context, serverURL string, opts ...MCPOption) ([]Tool, error) {
	c := NewMCPClient(serverURL, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.ListTools(ctx)
}
