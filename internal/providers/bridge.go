package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// BridgeAdapter forwards generation requests to an out-of-process HTTP
// bridge at <base_url>/v1/generate, matching the gateway's provider
// bridge contract.
type BridgeAdapter struct {
	AdapterName string
	BaseURL     string
	Token       string
	HTTPClient  *http.Client
}

func NewBridgeAdapter(name, baseURL, token string, timeoutSeconds float64) *BridgeAdapter {
	return &BridgeAdapter{
		AdapterName: name,
		BaseURL:     baseURL,
		Token:       token,
		HTTPClient:  &http.Client{Timeout: time.Duration(timeoutSeconds * float64(time.Second))},
	}
}

func (a *BridgeAdapter) Name() string { return a.AdapterName }

func (a *BridgeAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	payload := map[string]any{
		"session_id":            req.SessionID,
		"user_id":               req.UserID,
		"provider":              req.Provider,
		"model":                 req.Model,
		"text":                  req.Text,
		"mcp_enabled":           req.MCPEnabled,
		"mcp_profile_name":      req.MCPProfileName,
		"system_memory_summary": req.SystemMemorySummary,
		"tool_call_round":       req.ToolCallRound,
		"mcp_tools":             encodeMCPTools(req.MCPTools),
		"tool_results":          encodeToolResults(req.ToolResults),
		"attachments":           encodeAttachments(req.Attachments),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, errs.Validation("cannot encode provider request: %s", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return Response{}, errs.Validation("cannot build provider request: %s", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, errs.TimedOut("provider bridge request timed out")
		}
		return Response{}, errs.WrapTransient(err, "provider bridge request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Response{}, errs.Transient("provider bridge returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, errs.WrapTransient(err, "failed reading provider bridge response")
	}

	if resp.StatusCode >= 400 {
		return Response{}, errs.Transient("provider bridge returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Response{}, errs.Transient("provider bridge returned a non-JSON-object body")
	}

	toolRequests, err := parseToolRequests(decoded)
	if err != nil {
		return Response{}, err
	}

	text, _ := decoded["text"].(string)
	decisionSummary, _ := decoded["decision_summary"].(string)
	return Response{
		Text:            text,
		DecisionSummary: decisionSummary,
		ToolRequests:    toolRequests,
		Done:            len(toolRequests) == 0,
	}, nil
}

// parseToolRequests reads tool_requests, falling back to tool_calls, the
// same fallback the original gateway bridge accepted.
func parseToolRequests(body map[string]any) ([]ToolCallRequest, error) {
	raw, ok := body["tool_requests"]
	if !ok {
		raw, ok = body["tool_calls"]
	}
	if !ok || raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, errs.Transient("provider bridge tool_requests was not a list")
	}

	out := make([]ToolCallRequest, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		args, _ := entry["arguments"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		callID, _ := entry["call_id"].(string)
		if callID == "" {
			callID, _ = entry["id"].(string)
		}
		out = append(out, ToolCallRequest{CallID: callID, Name: name, Arguments: args})
	}
	return out, nil
}

func encodeMCPTools(tools []MCPToolSpec) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.InputSchema,
		})
	}
	return out
}

func encodeToolResults(results []ToolResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]any{
			"call_id": r.CallID,
			"name":    r.Name,
			"output":  r.Output,
			"ok":      r.OK,
		})
	}
	return out
}

func encodeAttachments(attachments []Attachment) []map[string]any {
	out := make([]map[string]any, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, map[string]any{
			"attachment_id": a.AttachmentID,
			"filename":      a.Filename,
			"content_type":  a.ContentType,
		})
	}
	return out
}
