package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// Client is the MCP JSON-RPC client for a single server. It deliberately
// keeps three separate locks rather than one: a combined lock would force
// ensure_initialized to reacquire it from inside the raw call it makes,
// deadlocking. requestID is a counter only, guarded by an atomic since it
// never needs to coordinate with anything else.
type Client struct {
	serverURL      string
	token          string
	httpClient     *http.Client

	requestID uint64

	initMu     sync.Mutex
	initResult atomic.Pointer[InitializeResult]

	sessionMu sync.Mutex
	sessionID string

	protocolVersion string
}

func New(serverURL, token string, timeoutSeconds float64) *Client {
	return &Client{
		serverURL:  serverURL,
		token:      token,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds * float64(time.Second))},
	}
}

// EnsureInitialized performs the MCP handshake exactly once per client
// lifetime, returning the cached result on every subsequent call.
func (c *Client) EnsureInitialized(ctx context.Context, clientName, clientVersion string) (*InitializeResult, error) {
	if cached := c.initResult.Load(); cached != nil {
		return cached, nil
	}

	c.initMu.Lock()
	defer c.initMu.Unlock()
	if cached := c.initResult.Load(); cached != nil {
		return cached, nil
	}

	result, err := c.doInitialize(ctx, clientName, clientVersion)
	if err != nil {
		return nil, err
	}
	c.initResult.Store(result)
	return result, nil
}

func (c *Client) doInitialize(ctx context.Context, clientName, clientVersion string) (*InitializeResult, error) {
	if c.serverURL == "" {
		return nil, errs.Configuration("MCP server URL is not configured")
	}

	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
	}

	raw, err := c.callRaw(ctx, "initialize", params, false, false)
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errs.WrapTransient(err, "malformed MCP initialize result")
	}
	if result.ProtocolVersion != "" {
		c.protocolVersion = result.ProtocolVersion
	} else {
		c.protocolVersion = ProtocolVersion
	}

	c.notify(ctx, "notifications/initialized", nil)
	return &result, nil
}

// ListTools returns every tool the server exposes, following cursor
// pagination until the server stops returning a nextCursor.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var out []Tool
	err := c.listPaginated(ctx, "tools/list", "tools", func(raw json.RawMessage) error {
		var page []Tool
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	return out, err
}

func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var out []Prompt
	err := c.listPaginated(ctx, "prompts/list", "prompts", func(raw json.RawMessage) error {
		var page []Prompt
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	return out, err
}

func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var out []Resource
	err := c.listPaginated(ctx, "resources/list", "resources", func(raw json.RawMessage) error {
		var page []Resource
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	return out, err
}

func (c *Client) ListResourceTemplates(ctx context.Context) ([]ResourceTemplate, error) {
	var out []ResourceTemplate
	err := c.listPaginated(ctx, "resources/templates/list", "resourceTemplates", func(raw json.RawMessage) error {
		var page []ResourceTemplate
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	return out, err
}

func (c *Client) listPaginated(ctx context.Context, method, listKey string, collect func(json.RawMessage) error) error {
	seenCursors := make(map[string]bool)
	cursor := ""

	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		raw, err := c.call(ctx, method, params)
		if err != nil {
			return err
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return errs.WrapTransient(err, "malformed %s response", method)
		}
		if items, ok := envelope[listKey]; ok {
			if err := collect(items); err != nil {
				return errs.WrapTransient(err, "malformed %s items", method)
			}
		}

		var nextCursor string
		if rawCursor, ok := envelope["nextCursor"]; ok {
			_ = json.Unmarshal(rawCursor, &nextCursor)
		}
		if nextCursor == "" {
			return nil
		}
		if seenCursors[nextCursor] {
			return errs.Transient("MCP pagination cursor 순환이 감지됐어요.")
		}
		seenCursors[nextCursor] = true
		cursor = nextCursor
	}
}

// Ping checks server liveness.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "ping", map[string]any{})
	return err
}

// CallTool invokes a named MCP tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error) {
	return c.call(ctx, "tools/call", map[string]any{"name": name, "arguments": arguments})
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.callRaw(ctx, method, params, true, true)
}

func (c *Client) callRaw(ctx context.Context, method string, params any, includeProtocolHeader, includeSessionHeader bool) (json.RawMessage, error) {
	if c.serverURL == "" {
		return nil, errs.Configuration("MCP server URL is not configured")
	}

	id := atomic.AddUint64(&c.requestID, 1)
	envelope := rpcRequest{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, errs.Validation("cannot encode MCP request: %s", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Validation("cannot build MCP request: %s", err)
	}
	for k, v := range c.buildHeaders(includeProtocolHeader, includeSessionHeader) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.TimedOut("MCP request %s timed out", method)
		}
		return nil, errs.WrapTransient(err, "MCP request %s failed", method)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("MCP-Session-Id"); sid != "" {
		c.sessionMu.Lock()
		c.sessionID = sid
		c.sessionMu.Unlock()
	}

	if resp.StatusCode >= 500 {
		return nil, errs.Transient("MCP server returned %d for %s", resp.StatusCode, method)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.WrapTransient(err, "failed reading MCP response for %s", method)
	}

	if resp.StatusCode >= 400 {
		return nil, errs.Transient("MCP server returned %d for %s: %s", resp.StatusCode, method, string(raw))
	}

	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errs.WrapTransient(err, "malformed MCP response for %s", method)
	}
	if decoded.Error != nil {
		return nil, errs.Transient("MCP error for %s: %s", method, decoded.Error.Message)
	}
	return decoded.Result, nil
}

func (c *Client) notify(ctx context.Context, method string, params any) {
	envelope := rpcNotification{JSONRPC: jsonRPCVersion, Method: method, Params: params}
	body, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	for k, v := range c.buildHeaders(true, true) {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func (c *Client) buildHeaders(includeAccept, includeSession bool) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if includeAccept {
		headers["Accept"] = "application/json, text/event-stream"
	}
	if c.token != "" {
		headers["Authorization"] = fmt.Sprintf("Bearer %s", c.token)
	}
	if c.protocolVersion != "" {
		headers["MCP-Protocol-Version"] = c.protocolVersion
	}
	if includeSession {
		c.sessionMu.Lock()
		sid := c.sessionID
		c.sessionMu.Unlock()
		if sid != "" {
			headers["MCP-Session-Id"] = sid
		}
	}
	return headers
}
