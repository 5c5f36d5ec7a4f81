package tool

import (
	"context"
	"strings"

	"github.com/basalt-ai/basalt/schema"
)

// MCPServerInfo describes a discoverable MCP server.
type MCPServerInfo struct {
	Name      string
	URL       string
	Tools     []schema.ToolDefinition
	Transport string
}

// MCPRegistry discovers and searches MCP servers available to the runtime.
type MCPRegistry interface {
	Discover(ctx context.Context) ([]MCPServerInfo, error)
	Search(ctx context.Context, query string) ([]MCPServerInfo, error)
}

// StaticMCPRegistry is an MCPRegistry over a fixed, in-memory server list.
type StaticMCPRegistry struct {
	servers []MCPServerInfo
}

// NewStaticMCPRegistry returns a registry over servers.
func NewStaticMCPRegistry(servers ...MCPServerInfo) *StaticMCPRegistry {
	cp := make([]MCPServerInfo, len(servers))
	copy(cp, servers)
	return &StaticMCPRegistry{servers: cp}
}

func (r *StaticMCPRegistry) Discover(ctx context.Context) ([]MCPServerInfo, error) {
	cp := make([]MCPServerInfo, len(r.servers))
	copy(cp, r.servers)
	return cp, nil
}

func (r *StaticMCPRegistry) Search(ctx context.Context, query string) ([]MCPServerInfo, error) {
	var matches []MCPServerInfo
	for _, s := range r.servers {
		if containsCI(s.Name, query) {
			matches = append(matches, s)
		}
	}
	return matches, nil
}

func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

var _ MCPRegistry = (*StaticMCPRegistry)(nil)
