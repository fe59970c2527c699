package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

const defaultMaxTokens = 1024

// AnthropicModel implements driven.LanguageModel with the Messages API.
type AnthropicModel struct {
	client anthropic.Client
	model  string
}

// Compile-time interface satisfaction check.
var _ driven.LanguageModel = (*AnthropicModel)(nil)

// NewAnthropicModel creates an AnthropicModel. baseURL may be empty.
func NewAnthropicModel(apiKey, baseURL, defaultModel string, opts ...option.RequestOption) *AnthropicModel {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &AnthropicModel{
		client: anthropic.NewClient(reqOpts...),
		model:  defaultModel,
	}
}

// Complete sends one non-streaming Messages request.
func (m *AnthropicModel) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	modelID := m.model
	if req.Model != "" {
		modelID = req.Model
	}

	messages, err := anthropicMessages(req.Messages)
	if err != nil {
		return driven.Completion{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: defaultMaxTokens,
		Messages:  messages,
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			var schema struct {
				Properties map[string]any `json:"properties"`
				Required   []string       `json:"required"`
			}
			if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
				return driven.Completion{}, fmt.Errorf("parse schema of tool %s: %w", tool.Name, err)
			}
			toolParam := anthropic.ToolParam{
				Name:        string(tool.Name),
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema.Properties,
					Required:   schema.Required,
				},
			}
			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = tools
		if req.RequireText {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		}
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return driven.Completion{}, fmt.Errorf("anthropic messages: %w: %w", model.ErrUpstreamService, err)
	}

	var out driven.Completion
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Text += b.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, driven.ToolCall{
				ID:        b.ID,
				Name:      model.ToolName(b.Name),
				Arguments: b.Input,
			})
		}
	}
	return out, nil
}

func anthropicMessages(msgs []driven.ChatMessage) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case "user":
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						return nil, fmt.Errorf("decode arguments of tool call %s: %w", tc.ID, err)
					}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  string(tc.Name),
						Input: input,
					},
				})
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			}

		case "tool":
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}
	return result, nil
}
