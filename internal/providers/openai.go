package providers

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// OpenAIAdapter calls the OpenAI chat completions API directly, for
// sessions whose provider is pinned to "openai" rather than the generic
// HTTP bridge.
type OpenAIAdapter struct {
	client *openai.Client
}

func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{client: openai.NewClient(apiKey)}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: req.Text},
	}
	if req.SystemMemorySummary != "" {
		messages = append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemMemorySummary},
		}, messages...)
	}

	var tools []openai.Tool
	for _, t := range req.MCPTools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return Response{}, errs.WrapTransient(err, "openai request failed")
	}
	if len(resp.Choices) == 0 {
		return Response{}, errs.Transient("openai returned no choices")
	}

	choice := resp.Choices[0]
	var toolRequests []ToolCallRequest
	for _, call := range choice.Message.ToolCalls {
		toolRequests = append(toolRequests, ToolCallRequest{
			CallID:    call.ID,
			Name:      call.Function.Name,
			Arguments: map[string]any{"raw": call.Function.Arguments},
		})
	}

	return Response{
		Text:            choice.Message.Content,
		DecisionSummary: summarizeDecision(toolRequests),
		ToolRequests:    toolRequests,
		Done:            len(toolRequests) == 0,
	}, nil
}
