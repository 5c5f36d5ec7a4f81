// Package registry tracks a set of named MCP servers and discovers the
// tools they expose, merging them into the local tool.Tool contract.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/protocol/mcp"
	"github.com/basalt-ai/basalt/tool"
)

// MCPClientInterface is the subset of mcp.MCPClient's behavior the
// registry depends on, so tests can substitute a mock transport.
type MCPClientInterface interface {
	Initialize(ctx context.Context) (*mcp.ServerCapabilities, error)
	ListTools(ctx context.Context) ([]mcp.ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolCallResult, error)
}

// ServerEntry is one server tracked by the registry.
type ServerEntry struct {
	Name string
	URL  string
	Tags []string
}

// DiscoveredTool pairs a resolved tool.Tool with the server it came from.
type DiscoveredTool struct {
	Tool       tool.Tool
	ServerName string
}

// Registry tracks MCP servers and discovers their tools on demand.
type Registry struct {
	mu            sync.RWMutex
	servers       []ServerEntry
	clientFactory func(url string) MCPClientInterface
}

// New returns an empty Registry that dials real MCP servers over HTTP.
func New() *Registry {
	return &Registry{
		clientFactory: func(url string) MCPClientInterface {
			return mcp.NewClient(url)
		},
	}
}

// AddServer registers a server under name at url, tagged with tags.
func (r *Registry) AddServer(name, url string, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = append(r.servers, ServerEntry{Name: name, URL: url, Tags: tags})
}

// RemoveServer unregisters the server named name, if present.
func (r *Registry) RemoveServer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.servers {
		if s.Name == name {
			r.servers = append(r.servers[:i], r.servers[i+1:]...)
			return
		}
	}
}

// Servers returns every registered server, in registration order.
func (r *Registry) Servers() []ServerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServerEntry, len(r.servers))
	copy(out, r.servers)
	return out
}

// ServersByTag returns every registered server tagged with tag.
func (r *Registry) ServersByTag(tag string) []ServerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ServerEntry
	for _, s := range r.servers {
		for _, t := range s.Tags {
			if t == tag {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// DiscoverTools initializes and lists tools from every registered server.
// A server that fails to initialize or list is skipped rather than
// failing the whole call; DiscoverTools only errors if every server
// fails.
func (r *Registry) DiscoverTools(ctx context.Context) ([]DiscoveredTool, error) {
	servers := r.Servers()
	if len(servers) == 0 {
		return nil, nil
	}

	var discovered []DiscoveredTool
	var failures int
	for _, s := range servers {
		tools, err := r.discoverFrom(ctx, s)
		if err != nil {
			failures++
			continue
		}
		discovered = append(discovered, tools...)
	}

	if failures == len(servers) {
		return nil, core.NewError("mcp.registry.discover", core.ErrToolboxListFailed, "all servers failed discovery", nil)
	}
	return discovered, nil
}

// DiscoverToolsFromServer discovers tools from exactly one registered
// server.
func (r *Registry) DiscoverToolsFromServer(ctx context.Context, name string) ([]DiscoveredTool, error) {
	r.mu.RLock()
	var entry *ServerEntry
	for _, s := range r.servers {
		if s.Name == name {
			e := s
			entry = &e
			break
		}
	}
	r.mu.RUnlock()

	if entry == nil {
		return nil, core.NewError("mcp.registry.discover", core.ErrNotFound, fmt.Sprintf("server %q not registered", name), nil)
	}
	return r.discoverFrom(ctx, *entry)
}

func (r *Registry) discoverFrom(ctx context.Context, s ServerEntry) ([]DiscoveredTool, error) {
	client := r.clientFactory(s.URL)
	if _, err := client.Initialize(ctx); err != nil {
		return nil, core.NewError("mcp.registry.discover", core.ErrToolboxListFailed, "initialize "+s.Name, err)
	}
	infos, err := client.ListTools(ctx)
	if err != nil {
		return nil, core.NewError("mcp.registry.discover", core.ErrToolboxListFailed, "list tools from "+s.Name, err)
	}

	out := make([]DiscoveredTool, len(infos))
	for i, info := range infos {
		out[i] = DiscoveredTool{Tool: newRemoteTool(client, info), ServerName: s.Name}
	}
	return out, nil
}

// Tools discovers and flattens every tool from every registered server.
func (r *Registry) Tools(ctx context.Context) ([]tool.Tool, error) {
	discovered, err := r.DiscoverTools(ctx)
	if err != nil {
		return nil, err
	}
	tools := make([]tool.Tool, len(discovered))
	for i, d := range discovered {
		tools[i] = d.Tool
	}
	return tools, nil
}
