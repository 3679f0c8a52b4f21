package providers

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/document"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// BedrockAdapter calls Anthropic-on-Bedrock models via the Bedrock
// Converse API, for deployments that route model traffic through AWS
// rather than directly to a vendor API.
type BedrockAdapter struct {
	client *bedrockruntime.Client
}

func NewBedrockAdapter(client *bedrockruntime.Client) *BedrockAdapter {
	return &BedrockAdapter{client: client}
}

func (a *BedrockAdapter) Name() string { return "bedrock" }

func (a *BedrockAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	message := types.Message{
		Role: types.ConversationRoleUser,
		Content: []types.ContentBlock{
			&types.ContentBlockMemberText{Value: req.Text},
		},
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  &req.Model,
		Messages: []types.Message{message},
	}
	if req.SystemMemorySummary != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.SystemMemorySummary},
		}
	}

	for _, t := range req.MCPTools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			continue
		}
		input.ToolConfig = appendToolSpec(input.ToolConfig, t.Name, t.Description, schema)
	}

	out, err := a.client.Converse(ctx, input)
	if err != nil {
		return Response{}, errs.WrapTransient(err, "bedrock converse request failed")
	}

	outputMember, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return Response{}, errs.Transient("bedrock returned an unexpected output shape")
	}

	var text string
	var toolRequests []ToolCallRequest
	for _, block := range outputMember.Value.Content {
		switch variant := block.(type) {
		case *types.ContentBlockMemberText:
			text += variant.Value
		case *types.ContentBlockMemberToolUse:
			var args map[string]any
			if variant.Value.Input != nil {
				if doc, err := variant.Value.Input.MarshalSmithyDocument(); err == nil {
					_ = json.Unmarshal(doc, &args)
				}
			}
			toolRequests = append(toolRequests, ToolCallRequest{
				CallID:    derefString(variant.Value.ToolUseId),
				Name:      derefString(variant.Value.Name),
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

func appendToolSpec(cfg *types.ToolConfiguration, name, description string, schemaJSON []byte) *types.ToolConfiguration {
	if cfg == nil {
		cfg = &types.ToolConfiguration{}
	}
	cfg.Tools = append(cfg.Tools, &types.ToolMemberToolSpec{
		Value: types.ToolSpecification{
			Name:        &name,
			Description: &description,
			InputSchema: &types.ToolInputSchemaMemberJson{
				Value: document.NewLazyDocument(json.RawMessage(schemaJSON)),
			},
		},
	})
	return cfg
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
