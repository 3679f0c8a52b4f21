package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/turnengine/internal/attachments"
	"github.com/haasonsaas/turnengine/internal/errs"
	"github.com/haasonsaas/turnengine/internal/events"
	"github.com/haasonsaas/turnengine/internal/mcpclient"
	"github.com/haasonsaas/turnengine/internal/policy"
	"github.com/haasonsaas/turnengine/internal/providers"
	"github.com/haasonsaas/turnengine/internal/sessions"
	"github.com/haasonsaas/turnengine/internal/subagent"
	"github.com/haasonsaas/turnengine/internal/tools"
)

// Sink is the subset of events.Sink the engine depends on, modeled as an
// interface (rather than a concrete type) so tests can substitute an
// in-memory recorder for the real HTTP publisher.
type Sink interface {
	Publish(ctx context.Context, ev events.StreamEvent) error
}

// AttachmentIngestor is the subset of attachments.Ingestor the engine
// depends on.
type AttachmentIngestor interface {
	Ingest(ctx context.Context, sessionID, turnID string, list []attachments.Attachment) (attachments.Result, error)
}

// MCPSource is the subset of mcpclient.Client the engine depends on.
type MCPSource interface {
	EnsureInitialized(ctx context.Context, clientName, clientVersion string) (*mcpclient.InitializeResult, error)
	ListTools(ctx context.Context) ([]mcpclient.Tool, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error)
}

// Engine wires every collaborator the turn-processing state machine needs.
type Engine struct {
	Sessions      *sessions.Store
	WorkspaceRoot string
	Tools         *tools.Registry
	Attachments   AttachmentIngestor
	MCP           MCPSource
	Providers     map[string]providers.Adapter
	Sink          Sink
	MaxToolRounds int
}

// Process runs the full ten-step TurnEngine state machine for one task,
// ending in exactly one FINAL event on the happy path. DomainErrors and
// unexpected errors alike are returned to the caller (the worker pool),
// which is responsible for emitting the terminal ERROR event.
func (e *Engine) Process(ctx context.Context, task Task) error {
	emit := events.NewEmitter(task.SessionID, task.TurnID, task.TraceID)

	session, err := e.Sessions.Get(task.SessionID)
	if err != nil {
		return err
	}

	loader := policy.NewLoader(e.WorkspaceRoot)
	snapshot := loader.Load()

	if err := e.Sink.Publish(ctx, emit.Plan(fmt.Sprintf("세션 %s의 턴을 처리할게요.", task.SessionID))); err != nil {
		return err
	}
	if err := e.Sink.Publish(ctx, emit.Action(
		fmt.Sprintf("정책: %s / 에이전트: %s / 스킬: %s", snapshot.RulesSummary, snapshot.AgentsSummary, snapshot.SkillsSummary),
		nil,
	)); err != nil {
		return err
	}

	effectiveText := task.Text
	effectiveModel := session.Model
	effectiveMCPEnabled := session.MCPEnabled
	effectiveMCPProfile := session.MCPProfileName
	effectiveMemory := snapshot.SystemMemorySummary

	if task.SubagentName != "" {
		specs := subagent.Discover(subagent.DefaultSearchPaths(e.WorkspaceRoot))
		found := false
		for _, s := range specs {
			if s.Name == task.SubagentName {
				effectiveText, effectiveModel, effectiveMCPEnabled, effectiveMCPProfile, effectiveMemory =
					subagent.Apply(s, effectiveText, effectiveModel, effectiveMCPEnabled, effectiveMCPProfile, effectiveMemory)
				found = true
				if err := e.Sink.Publish(ctx, emit.Action(
					fmt.Sprintf("서브에이전트 '%s'를 적용했어요.", s.Name), nil,
				)); err != nil {
					return err
				}
				break
			}
		}
		if !found {
			if err := e.Sink.Publish(ctx, emit.Action(
				fmt.Sprintf("서브에이전트 '%s'를 찾을 수 없어서 기본 설정으로 진행해요.", task.SubagentName), nil,
			)); err != nil {
				return err
			}
		}
	}

	attachResult, err := e.Attachments.Ingest(ctx, task.SessionID, task.TurnID, task.Attachments)
	if err != nil {
		return err
	}
	if err := e.Sink.Publish(ctx, emit.Action(attachResult.Summary, map[string]any{
		"downloaded_count": attachResult.DownloadedCount,
	})); err != nil {
		return err
	}

	builtinSpecs := e.Tools.ToProviderSpecs()
	builtinNames := make(map[string]bool, len(builtinSpecs))
	for _, s := range builtinSpecs {
		builtinNames[s.Name] = true
	}
	if err := e.Sink.Publish(ctx, emit.Action(
		fmt.Sprintf("내장 도구 %d개를 등록했어요: %s", len(builtinSpecs), strings.Join(builtinToolNames(builtinSpecs), ", ")),
		nil,
	)); err != nil {
		return err
	}

	var mcpTools []providers.MCPToolSpec
	if effectiveMCPEnabled && e.MCP != nil {
		collected, downgraded := e.collectMCPTools(ctx)
		if downgraded != "" {
			if err := e.Sink.Publish(ctx, emit.Action(downgraded, nil)); err != nil {
				return err
			}
		}
		for _, t := range collected {
			if builtinNames[t.Name] {
				continue
			}
			var schema map[string]any
			_ = json.Unmarshal(t.InputSchema, &schema)
			mcpTools = append(mcpTools, providers.MCPToolSpec{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: schema,
			})
		}
	}

	constraints := policy.ParseConstraints(snapshot.RulesText)
	available := make(map[string]struct{}, len(snapshot.AvailableSkills))
	for _, name := range snapshot.AvailableSkills {
		available[name] = struct{}{}
	}
	if err := policy.Enforce(session.Provider, effectiveModel, constraints, available); err != nil {
		return err
	}

	adapter, ok := e.Providers[session.Provider]
	if !ok {
		return errs.Configuration("no provider adapter registered for %q", session.Provider)
	}

	toolSpecMaps := make([]map[string]any, 0, len(builtinSpecs))
	for _, s := range builtinSpecs {
		var schema map[string]any
		_ = json.Unmarshal(s.InputSchema, &schema)
		toolSpecMaps = append(toolSpecMaps, map[string]any{
			"name":        s.Name,
			"description": s.Description,
			"input_schema": schema,
		})
	}

	providerAttachments := make([]providers.Attachment, 0, len(task.Attachments))
	for _, a := range task.Attachments {
		providerAttachments = append(providerAttachments, providers.Attachment{
			AttachmentID: a.AttachmentID,
			Filename:     a.Filename,
			ContentType:  a.ContentType,
		})
	}

	var toolResults []providers.ToolResult
	round := 0
	for {
		req := providers.Request{
			SessionID:           task.SessionID,
			UserID:              task.UserID,
			Provider:            session.Provider,
			Model:               effectiveModel,
			Text:                effectiveText,
			MCPEnabled:          effectiveMCPEnabled,
			MCPProfileName:      effectiveMCPProfile,
			SystemMemorySummary: effectiveMemory,
			ToolCallRound:       round,
			Tools:               toolSpecMaps,
			MCPTools:            mcpTools,
			ToolResults:         toolResults,
			Attachments:         providerAttachments,
		}

		resp, err := adapter.Generate(ctx, req)
		if err != nil {
			return err
		}

		if err := e.Sink.Publish(ctx, emit.DecisionSummary(resp.DecisionSummary)); err != nil {
			return err
		}
		if resp.Text != "" {
			if err := e.Sink.Publish(ctx, emit.ResponseDelta(resp.Text)); err != nil {
				return err
			}
		}

		if resp.Done || len(resp.ToolRequests) == 0 {
			return e.Sink.Publish(ctx, emit.Final("작업을 완료했어요."))
		}

		toolResults = nil
		for _, call := range resp.ToolRequests {
			result, summary := e.dispatchToolCall(ctx, call, builtinNames, effectiveMCPEnabled)
			if err := e.Sink.Publish(ctx, emit.Action(summary, map[string]any{"tool": call.Name})); err != nil {
				return err
			}
			toolResults = append(toolResults, result)
		}

		round++
		if e.MaxToolRounds > 0 && round >= e.MaxToolRounds {
			return e.Sink.Publish(ctx, emit.Final("작업을 완료했어요."))
		}
	}
}

func builtinToolNames(specs []tools.Spec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

func (e *Engine) collectMCPTools(ctx context.Context) ([]mcpclient.Tool, string) {
	if _, err := e.MCP.EnsureInitialized(ctx, "turnengine", "1.0"); err != nil {
		return nil, "MCP 서버 초기화에 실패해서 MCP 도구 없이 진행해요."
	}
	tools, err := e.MCP.ListTools(ctx)
	if err != nil {
		return nil, "MCP 도구 목록을 가져오지 못해서 MCP 도구 없이 진행해요."
	}
	return tools, ""
}

func (e *Engine) dispatchToolCall(ctx context.Context, call providers.ToolCallRequest, builtinNames map[string]bool, mcpEnabled bool) (providers.ToolResult, string) {
	if builtinNames[call.Name] {
		argsJSON, err := json.Marshal(call.Arguments)
		if err != nil {
			return providers.ToolResult{CallID: call.CallID, Name: call.Name, OK: false, Output: "invalid arguments"},
				fmt.Sprintf("도구 '%s' 호출 인자가 잘못됐어요.", call.Name)
		}
		res := e.Tools.Call(ctx, call.Name, argsJSON)
		if res.OK {
			return providers.ToolResult{CallID: call.CallID, Name: call.Name, OK: true, Output: res.Output},
				fmt.Sprintf("도구 '%s'를 실행했어요.", call.Name)
		}
		return providers.ToolResult{CallID: call.CallID, Name: call.Name, OK: false, Output: res.Error},
			fmt.Sprintf("도구 '%s' 실행이 실패했어요: %s", call.Name, res.Error)
	}

	if mcpEnabled && e.MCP != nil {
		raw, err := e.MCP.CallTool(ctx, call.Name, call.Arguments)
		if err != nil {
			return providers.ToolResult{CallID: call.CallID, Name: call.Name, OK: false, Output: err.Error()},
				fmt.Sprintf("MCP 도구 '%s' 호출이 실패했어요.", call.Name)
		}
		return providers.ToolResult{CallID: call.CallID, Name: call.Name, OK: true, Output: string(raw)},
			fmt.Sprintf("MCP 도구 '%s'를 실행했어요.", call.Name)
	}

	return providers.ToolResult{CallID: call.CallID, Name: call.Name, OK: false, Output: "unsupported tool"},
		fmt.Sprintf("지원하지 않는 도구예요: %s", call.Name)
}
