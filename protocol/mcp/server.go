package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/schema"
	"github.com/basalt-ai/basalt/tool"
)

// MCPServer exposes a set of tool.Tools, Resources, and Prompts over the
// MCP JSON-RPC methods (initialize, tools/list, tools/call,
// resources/list, prompts/list).
type MCPServer struct {
	name    string
	version string

	mu        sync.RWMutex
	tools     []tool.Tool
	resources []Resource
	prompts   []Prompt
}

// NewServer returns an MCPServer identifying itself as name/version in
// the initialize handshake.
func NewServer(name, version string) *MCPServer {
	return &MCPServer{name: name, version: version}
}

// AddTool registers t and returns the server for chaining.
func (s *MCPServer) AddTool(t tool.Tool) *MCPServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, t)
	return s
}

// AddResource registers r and returns the server for chaining.
func (s *MCPServer) AddResource(r Resource) *MCPServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, r)
	return s
}

// AddPrompt registers p and returns the server for chaining.
func (s *MCPServer) AddPrompt(p Prompt) *MCPServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)
	return s
}

// Handler returns the JSON-RPC HTTP handler: POST / dispatches an RPC
// call, any other method or path is a JSON-RPC invalid-request error.
func (s *MCPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRPC).Methods(http.MethodPost)
	reject := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, nil, CodeInvalidRequest, "only POST / is supported")
	})
	r.NotFoundHandler = reject
	r.MethodNotAllowedHandler = reject
	return r
}

// Serve listens on addr and serves the MCP handler until ctx is
// cancelled, at which point it shuts down and returns ctx.Err().
func (s *MCPServer) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return core.NewError("mcp.serve", core.ErrIO, "listen on "+addr, err)
	}

	httpSrv := &http.Server{Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		_ = httpSrv.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *MCPServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, CodeParseError, "parse error: "+err.Error())
		return
	}
	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, `jsonrpc must be "2.0"`)
		return
	}

	switch req.Method {
	case "initialize":
		writeResult(w, req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: ServerCapabilities{
				Tools:     &ToolCapability{},
				Resources: &ResourceCapability{},
				Prompts:   &PromptCapability{},
			},
			ServerInfo: ServerInfo{Name: s.name, Version: s.version},
		})
	case "tools/list":
		s.handleToolsList(w, req.ID)
	case "resources/list":
		s.handleResourcesList(w, req.ID)
	case "prompts/list":
		s.handlePromptsList(w, req.ID)
	case "tools/call":
		s.handleToolsCall(w, r.Context(), req)
	default:
		writeError(w, req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (s *MCPServer) handleToolsList(w http.ResponseWriter, id any) {
	s.mu.RLock()
	descs := make([]ToolInfo, len(s.tools))
	for i, t := range s.tools {
		descs[i] = ToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		}
	}
	s.mu.RUnlock()
	writeResult(w, id, struct {
		Tools []ToolInfo `json:"tools"`
	}{descs})
}

func (s *MCPServer) handleResourcesList(w http.ResponseWriter, id any) {
	s.mu.RLock()
	resources := append([]Resource{}, s.resources...)
	s.mu.RUnlock()
	writeResult(w, id, struct {
		Resources []Resource `json:"resources"`
	}{resources})
}

func (s *MCPServer) handlePromptsList(w http.ResponseWriter, id any) {
	s.mu.RLock()
	prompts := append([]Prompt{}, s.prompts...)
	s.mu.RUnlock()
	writeResult(w, id, struct {
		Prompts []Prompt `json:"prompts"`
	}{prompts})
}

func (s *MCPServer) handleToolsCall(w http.ResponseWriter, ctx context.Context, req Request) {
	raw, err := json.Marshal(req.Params)
	if err != nil {
		writeError(w, req.ID, CodeInvalidParams, "invalid params")
		return
	}
	var params ToolCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		writeError(w, req.ID, CodeInvalidParams, "invalid params: "+err.Error())
		return
	}

	s.mu.RLock()
	var target tool.Tool
	for _, t := range s.tools {
		if t.Name() == params.Name {
			target = t
			break
		}
	}
	s.mu.RUnlock()

	if target == nil {
		writeError(w, req.ID, CodeInvalidParams, fmt.Sprintf("unknown tool %q", params.Name))
		return
	}

	result, err := target.Execute(ctx, params.Arguments)
	if err != nil {
		writeError(w, req.ID, CodeInternalError, err.Error())
		return
	}

	content := make([]ContentItem, 0, len(result.Content))
	for _, part := range result.Content {
		if tp, ok := part.(schema.TextPart); ok {
			content = append(content, ContentItem{Type: "text", Text: tp.Text})
		}
	}
	writeResult(w, req.ID, ToolCallResult{Content: content, IsError: result.IsError})
}

func writeResult(w http.ResponseWriter, id any, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id any, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}})
}
