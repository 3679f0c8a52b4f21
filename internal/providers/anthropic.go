package providers

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// AnthropicAdapter calls the Anthropic Messages API directly, for
// sessions whose provider is pinned to "anthropic".
type AnthropicAdapter struct {
	client anthropic.Client
}

func NewAnthropicAdapter(apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Text)),
		},
	}
	if req.SystemMemorySummary != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemMemorySummary}}
	}

	for _, t := range req.MCPTools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema,
				},
			},
		})
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, errs.WrapTransient(err, "anthropic request failed")
	}

	var text string
	var toolRequests []ToolCallRequest
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += variant.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			_ = json.Unmarshal(variant.Input, &args)
			toolRequests = append(toolRequests, ToolCallRequest{
				CallID:    variant.ID,
				Name:      variant.Name,
				Arguments: args,
			})
		}
	}

	return Response{
		Text:            text,
		DecisionSummary: summarizeDecision(toolRequests),
		ToolRequests:    toolRequests,
		Done:            len(toolRequests) == 0,
	}, nil
}
