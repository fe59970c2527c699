// Package llm implements driven.LanguageModel on hosted generative-model APIs.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// OpenAIModel implements driven.LanguageModel with the chat completions API.
// Any OpenAI-compatible endpoint works when a base URL is configured.
type OpenAIModel struct {
	client openai.Client
	model  string
}

// Compile-time interface satisfaction check.
var _ driven.LanguageModel = (*OpenAIModel)(nil)

// NewOpenAIModel creates an OpenAIModel. baseURL may be empty; extra options
// are appended after the key and base URL.
func NewOpenAIModel(apiKey, baseURL, defaultModel string, opts ...option.RequestOption) *OpenAIModel {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIModel{
		client: openai.NewClient(reqOpts...),
		model:  defaultModel,
	}
}

// Complete sends one non-streaming chat completion request.
func (m *OpenAIModel) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	modelID := m.model
	if req.Model != "" {
		modelID = req.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelID),
		Messages: openAIMessages(req),
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			var schema map[string]any
			if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
				return driven.Completion{}, fmt.Errorf("parse schema of tool %s: %w", tool.Name, err)
			}
			tools = append(tools, openai.ChatCompletionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        string(tool.Name),
					Description: openai.String(tool.Description),
					Parameters:  shared.FunctionParameters(schema),
				},
			})
		}
		params.Tools = tools
		if req.RequireText {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoNone)),
			}
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return driven.Completion{}, fmt.Errorf("openai chat completion: %w: %w", model.ErrUpstreamService, err)
	}
	if len(resp.Choices) == 0 {
		return driven.Completion{}, fmt.Errorf("openai chat completion returned no choices: %w", model.ErrUpstreamService)
	}

	msg := resp.Choices[0].Message
	out := driven.Completion{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, driven.ToolCall{
			ID:        tc.ID,
			Name:      model.ToolName(tc.Function.Name),
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func openAIMessages(req driven.CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		result = append(result, openai.SystemMessage(req.System))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "user":
			result = append(result, openai.UserMessage(msg.Content))

		case "assistant":
			assistantMsg := openai.ChatCompletionAssistantMessageParam{Role: "assistant"}
			if msg.Content != "" {
				assistantMsg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				}
			}
			for _, tc := range msg.ToolCalls {
				assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      string(tc.Name),
						Arguments: argumentsOrEmpty(tc.Arguments),
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistantMsg})

		case "tool":
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return result
}

func argumentsOrEmpty(args json.RawMessage) string {
	if len(args) == 0 {
		return "{}"
	}
	return string(args)
}
