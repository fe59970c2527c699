package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/supportdesk/internal/adapter/driven/llm"
	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

var searchTool = driven.ToolDefinition{
	Name:        model.ToolSearch,
	Description: "Search documents.",
	Parameters:  json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
}

// openAIRequest captures the fields of a chat completion request the tests assert on.
type openAIRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role       string `json:"role"`
		Content    any    `json:"content"`
		ToolCallID string `json:"tool_call_id"`
		ToolCalls  []struct {
			ID       string `json:"id"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"messages"`
	Tools []struct {
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"tools"`
	ToolChoice any `json:"tool_choice"`
}

func newOpenAIServer(t *testing.T, body string, captured *openAIRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIModel_CompleteText(t *testing.T) {
	var captured openAIRequest
	srv := newOpenAIServer(t, `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "Hello there"}}]
	}`, &captured)

	m := llm.NewOpenAIModel("sk-test", srv.URL+"/v1/", "gpt-4o-mini", option.WithMaxRetries(0))
	got, err := m.Complete(context.Background(), driven.CompletionRequest{
		System:   "be nice",
		Messages: []driven.ChatMessage{{Role: "user", Content: "hi"}},
		Tools:    []driven.ToolDefinition{searchTool},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", got.Text)
	assert.Empty(t, got.ToolCalls)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be nice", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "search", captured.Tools[0].Function.Name)
	assert.Nil(t, captured.ToolChoice)
}

func TestOpenAIModel_CompleteToolCall(t *testing.T) {
	srv := newOpenAIServer(t, `{
		"id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function",
				 "function": {"name": "search", "arguments": "{\"query\":\"refunds\"}"}}]}}]
	}`, nil)

	m := llm.NewOpenAIModel("sk-test", srv.URL+"/v1/", "gpt-4o-mini", option.WithMaxRetries(0))
	got, err := m.Complete(context.Background(), driven.CompletionRequest{
		Messages: []driven.ChatMessage{{Role: "user", Content: "how do refunds work?"}},
		Tools:    []driven.ToolDefinition{searchTool},
	})
	require.NoError(t, err)

	require.Len(t, got.ToolCalls, 1)
	assert.Equal(t, "call_1", got.ToolCalls[0].ID)
	assert.Equal(t, model.ToolSearch, got.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"refunds"}`, string(got.ToolCalls[0].Arguments))
}

func TestOpenAIModel_SendsToolRoundTrip(t *testing.T) {
	var captured openAIRequest
	srv := newOpenAIServer(t, `{
		"id": "chatcmpl-3", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "Refunds take 14 days."}}]
	}`, &captured)

	m := llm.NewOpenAIModel("sk-test", srv.URL+"/v1/", "gpt-4o-mini", option.WithMaxRetries(0))
	_, err := m.Complete(context.Background(), driven.CompletionRequest{
		Model: "gpt-4o",
		Messages: []driven.ChatMessage{
			{Role: "user", Content: "refunds?"},
			{Role: "assistant", ToolCalls: []driven.ToolCall{{ID: "call_1", Name: model.ToolSearch, Arguments: json.RawMessage(`{"query":"refunds"}`)}}},
			{Role: "tool", ToolCallID: "call_1", Content: "14 days"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", captured.Model)
	require.Len(t, captured.Messages, 3)
	require.Len(t, captured.Messages[1].ToolCalls, 1)
	assert.Equal(t, "search", captured.Messages[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", captured.Messages[2].Role)
	assert.Equal(t, "call_1", captured.Messages[2].ToolCallID)
}

func TestOpenAIModel_ServerErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer srv.Close()

	m := llm.NewOpenAIModel("sk-test", srv.URL+"/v1/", "gpt-4o-mini", option.WithMaxRetries(0))
	_, err := m.Complete(context.Background(), driven.CompletionRequest{
		Messages: []driven.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.ErrorIs(t, err, model.ErrUpstreamService)
}

func TestOpenAIModel_RequireTextDisablesToolChoice(t *testing.T) {
	var captured openAIRequest
	srv := newOpenAIServer(t, `{
		"id": "chatcmpl-5", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "Refunds take 14 days."}}]
	}`, &captured)

	m := llm.NewOpenAIModel("sk-test", srv.URL+"/v1/", "gpt-4o-mini", option.WithMaxRetries(0))
	got, err := m.Complete(context.Background(), driven.CompletionRequest{
		Messages: []driven.ChatMessage{
			{Role: "user", Content: "refunds?"},
			{Role: "assistant", ToolCalls: []driven.ToolCall{{ID: "call_1", Name: model.ToolSearch, Arguments: json.RawMessage(`{"query":"refunds"}`)}}},
			{Role: "tool", ToolCallID: "call_1", Content: "14 days"},
		},
		Tools:       []driven.ToolDefinition{searchTool},
		RequireText: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Refunds take 14 days.", got.Text)

	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "none", captured.ToolChoice)
}
