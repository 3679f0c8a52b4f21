// Package providers implements the ProviderAdapter contract and its
// concrete backends: an HTTP bridge matching the original gateway
// contract, plus direct OpenAI, Anthropic, and Bedrock adapters.
package providers

import (
	"context"
	"fmt"
)

// ToolCallRequest is one tool invocation a provider asked the engine to
// perform mid-turn.
type ToolCallRequest struct {
	CallID    string
	Name      string
	Arguments map[string]any
}

// ToolResult is the outcome of a previously dispatched tool call, fed
// back to the provider on the next round.
type ToolResult struct {
	CallID string
	Name   string
	Output string
	OK     bool
}

// Attachment is the provider-facing view of one ingested attachment.
type Attachment struct {
	AttachmentID string
	Filename     string
	ContentType  string
}

// MCPToolSpec is the provider-facing description of one MCP tool made
// available this round.
type MCPToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request carries everything a provider needs to produce the next
// response in a turn.
type Request struct {
	SessionID           string
	UserID              string
	Provider            string
	Model               string
	Text                string
	MCPEnabled          bool
	MCPProfileName      string
	SystemMemorySummary string
	ToolCallRound       int
	Tools               []map[string]any
	MCPTools            []MCPToolSpec
	ToolResults         []ToolResult
	Attachments         []Attachment
}

// Response is what a provider returns for one round of a turn.
type Response struct {
	Text            string
	DecisionSummary string
	ToolRequests    []ToolCallRequest
	Done            bool
}

// Adapter is the capability every provider backend implements.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}

// summarizeDecision derives a short decision summary for adapters that
// talk to a provider API directly rather than through the bridge
// contract (which supplies decision_summary itself).
func summarizeDecision(toolRequests []ToolCallRequest) string {
	if len(toolRequests) > 0 {
		return fmt.Sprintf("도구 %d개를 호출하기로 했어요.", len(toolRequests))
	}
	return "응답을 완료했어요."
}
