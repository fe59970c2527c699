package driven

import (
	"context"
	"encoding/json"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// ChatMessage is one turn sent to a language model.
type ChatMessage struct {
	Role       string // "user", "assistant", or "tool"
	Content    string
	ToolCalls  []ToolCall // Set on assistant turns that invoked tools.
	ToolCallID string     // Set on tool turns.
}

// ToolCall is a model's request to invoke a named tool.
type ToolCall struct {
	ID        string
	Name      model.ToolName
	Arguments json.RawMessage
}

// ToolDefinition describes a tool offered to the model. Parameters is a
// JSON Schema object.
type ToolDefinition struct {
	Name        model.ToolName
	Description string
	Parameters  json.RawMessage
}

// CompletionRequest is a single non-streaming generation call.
type CompletionRequest struct {
	Model    string // Overrides the adapter default when set.
	System   string
	Messages []ChatMessage
	Tools    []ToolDefinition

	// RequireText keeps Tools declared, so earlier tool turns stay valid,
	// but forbids new tool calls.
	RequireText bool
}

// Completion is the model's reply: text, tool calls, or both.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// LanguageModel is the generative-model collaborator.
type LanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}
