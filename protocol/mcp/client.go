package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/basalt-ai/basalt/core"
)

// MCPClient speaks the MCP JSON-RPC methods to a single server over HTTP
// POST.
type MCPClient struct {
	serverURL string
	http      *http.Client
	idSeq     int64
}

// NewClient returns a client for the MCP server at serverURL.
func NewClient(serverURL string) *MCPClient {
	return &MCPClient{serverURL: serverURL, http: &http.Client{}}
}

// Initialize performs the MCP handshake and returns the server's
// advertised capabilities.
func (c *MCPClient) Initialize(ctx context.Context) (*ServerCapabilities, error) {
	var result InitializeResult
	if err := c.call(ctx, "initialize", nil, &result); err != nil {
		return nil, err
	}
	return &result.Capabilities, nil
}

// ListTools returns the server's advertised tool list.
func (c *MCPClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var result struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := c.call(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes the named tool with args and returns its result.
func (c *MCPClient) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	var result ToolCallResult
	params := ToolCallParams{Name: name, Arguments: args}
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// call issues a single JSON-RPC request and decodes its result into out
// (skipped if out is nil).
func (c *MCPClient) call(ctx context.Context, method string, params any, out any) error {
	req := Request{
		JSONRPC: "2.0",
		ID:      atomic.AddInt64(&c.idSeq, 1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return core.NewError("mcp.call", core.ErrIO, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL, bytes.NewReader(body))
	if err != nil {
		return core.NewError("mcp.call", core.ErrIO, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return core.NewError("mcp.call", core.ErrToolboxDisconnected, "request to "+c.serverURL+" failed", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return core.NewError("mcp.call", core.ErrIO, "decode response", err)
	}
	if rpcResp.Error != nil {
		return core.NewError("mcp.call", core.ErrIO, rpcResp.Error.Message, rpcResp.Error)
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(rpcResp.Result)
	if err != nil {
		return core.NewError("mcp.call", core.ErrIO, "marshal result", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return core.NewError("mcp.call", core.ErrIO, "unmarshal result", err)
	}
	return nil
}
