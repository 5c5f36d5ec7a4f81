package agentruntime

import (
	"context"
	"sync"

	"github.com/basalt-ai/basalt/protocol/mcp/registry"
	"github.com/basalt-ai/basalt/tool"
)

// Toolbox resolves a dynamic set of tools at agent start-up, e.g. the
// tools exposed by a remote MCP server. Toolboxes are resolved once, when
// New builds the Runtime's tool set; later changes on the remote side are
// not picked up without constructing a new Runtime.
type Toolbox interface {
	// ListTools returns the tools this toolbox currently exposes.
	ListTools(ctx context.Context) ([]tool.Tool, error)
	// Close releases any resources held by the toolbox. It is safe to
	// call more than once.
	Close(ctx context.Context) error
}

// MCPToolbox adapts an MCP server registry into a Toolbox, grounded on the
// working protocol/mcp JSON-RPC 2.0 client rather than the deliberately
// unimplemented streamable-HTTP stub in tool/mcp.go.
type MCPToolbox struct {
	registry *registry.Registry
	once     sync.Once
}

// NewMCPToolbox wraps reg, an already-populated MCP server registry.
func NewMCPToolbox(reg *registry.Registry) *MCPToolbox {
	return &MCPToolbox{registry: reg}
}

// ListTools discovers and flattens the tools exposed by every server
// registered with the underlying registry.
func (b *MCPToolbox) ListTools(ctx context.Context) ([]tool.Tool, error) {
	return b.registry.Tools(ctx)
}

// Close is a no-op beyond its sync.Once guard: the registry's HTTP client
// holds no persistent connection to tear down, but Close is still safe to
// call repeatedly during shutdown without emitting duplicate failures.
func (b *MCPToolbox) Close(_ context.Context) error {
	b.once.Do(func() {})
	return nil
}

var _ Toolbox = (*MCPToolbox)(nil)
