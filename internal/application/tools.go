package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// Tool results the model sees for soft failures and completed transitions.
const (
	missingThreadResult        = "Missing thread ID"
	conversationNotFoundResult = "Conversation not found"
	escalatedResult            = "Conversation marked as escalated to human operator"
	resolvedResult             = "Conversation marked as resolved"
)

// searchLimit caps the passages one search call retrieves.
const searchLimit = 5

// ToolContext is the invocation context handed to every tool. It is passed
// explicitly; tools never read ambient state.
type ToolContext struct {
	ThreadID       string
	OrganizationID string
}

// Tool is one capability the agent may invoke.
type Tool interface {
	Definition() driven.ToolDefinition
	Call(ctx context.Context, tc ToolContext, args json.RawMessage) (string, error)
}

// ToolRegistry maps every model.ToolName to its handler.
type ToolRegistry struct {
	tools  map[model.ToolName]Tool
	logger *slog.Logger
}

// NewToolRegistry registers the built-in tools. It fails if any name in
// model.AllTools lacks a handler.
func NewToolRegistry(conversations *ConversationService, index driven.DocumentIndex, llm driven.LanguageModel, logger *slog.Logger) (*ToolRegistry, error) {
	tools := map[model.ToolName]Tool{
		model.ToolSearch:   &searchTool{conversations: conversations, index: index, llm: llm},
		model.ToolEscalate: &transitionTool{conversations: conversations, name: model.ToolEscalate, description: "Escalate a conversation by its thread ID.", apply: conversations.Escalate, result: escalatedResult},
		model.ToolResolve:  &transitionTool{conversations: conversations, name: model.ToolResolve, description: "Resolve a conversation by its thread ID.", apply: conversations.Resolve, result: resolvedResult},
	}
	for _, name := range model.AllTools() {
		if _, ok := tools[name]; !ok {
			return nil, fmt.Errorf("tool %q has no handler", name)
		}
	}
	return &ToolRegistry{tools: tools, logger: logger}, nil
}

// Definitions returns the tool definitions in model.AllTools order.
func (r *ToolRegistry) Definitions() []driven.ToolDefinition {
	defs := make([]driven.ToolDefinition, 0, len(r.tools))
	for _, name := range model.AllTools() {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Dispatch runs one tool call and returns the text fed back to the model.
// Unknown tools and handler errors become result text so the model can
// recover; they are logged but do not abort the turn.
func (r *ToolRegistry) Dispatch(ctx context.Context, tc ToolContext, call driven.ToolCall) string {
	tool, ok := r.tools[call.Name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", call.Name, "thread_id", tc.ThreadID)
		return fmt.Sprintf("Unknown tool %q", call.Name)
	}

	result, err := tool.Call(ctx, tc, call.Arguments)
	if err != nil {
		r.logger.Error("tool call failed", "tool", call.Name, "thread_id", tc.ThreadID, "error", err)
		return fmt.Sprintf("Tool %s failed: %v", call.Name, err)
	}
	return result
}

// transitionTool moves the thread's conversation to a new status.
type transitionTool struct {
	conversations *ConversationService
	name          model.ToolName
	description   string
	apply         func(ctx context.Context, threadID string) (model.Conversation, error)
	result        string
}

func (t *transitionTool) Definition() driven.ToolDefinition {
	return driven.ToolDefinition{
		Name:        t.name,
		Description: t.description,
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
	}
}

func (t *transitionTool) Call(ctx context.Context, tc ToolContext, _ json.RawMessage) (string, error) {
	if tc.ThreadID == "" {
		return missingThreadResult, nil
	}
	conv, err := t.conversations.ByThread(ctx, tc.ThreadID)
	if errors.Is(err, model.ErrNotFound) {
		return conversationNotFoundResult, nil
	}
	if err != nil {
		return "", err
	}
	if tc.OrganizationID != "" && tc.OrganizationID != conv.OrganizationID {
		return "", fmt.Errorf("thread %q belongs to another organization: %w", tc.ThreadID, model.ErrUnauthorized)
	}

	if _, err := t.apply(ctx, tc.ThreadID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return conversationNotFoundResult, nil
		}
		return "", err
	}
	return t.result, nil
}

// searchTool answers from the organization's knowledge base. It never
// mutates state.
type searchTool struct {
	conversations *ConversationService
	index         driven.DocumentIndex
	llm           driven.LanguageModel
}

type searchArgs struct {
	Query string `json:"query"`
}

func (t *searchTool) Definition() driven.ToolDefinition {
	return driven.ToolDefinition{
		Name:        model.ToolSearch,
		Description: "Search for relevant documents to answer user queries.",
		Parameters: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string",` +
			`"description":"The search query to find relevant information."}},"required":["query"]}`),
	}
}

func (t *searchTool) Call(ctx context.Context, tc ToolContext, args json.RawMessage) (string, error) {
	if tc.ThreadID == "" {
		return missingThreadResult, nil
	}

	var in searchArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("decode search arguments: %w", err)
		}
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("search query is empty: %w", model.ErrInvalidArgument)
	}

	conv, err := t.conversations.ByThread(ctx, tc.ThreadID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return conversationNotFoundResult, nil
		}
		return "", err
	}
	if tc.OrganizationID != "" && tc.OrganizationID != conv.OrganizationID {
		return "", fmt.Errorf("thread %q belongs to another organization: %w", tc.ThreadID, model.ErrUnauthorized)
	}

	results, err := t.index.Search(ctx, conv.OrganizationID, in.Query, searchLimit)
	if err != nil {
		return "", err
	}

	completion, err := t.llm.Complete(ctx, driven.CompletionRequest{
		System: searchInterpreterPrompt,
		Messages: []driven.ChatMessage{{
			Role:    string(model.RoleUser),
			Content: fmt.Sprintf("User asked: %q\n\nSearch results: %s", in.Query, searchContext(results)),
		}},
	})
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

func searchContext(results []model.SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	titles := make([]string, 0, len(results))
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Title != "" {
			titles = append(titles, r.Title)
		}
		texts = append(texts, r.Text)
	}
	return fmt.Sprintf("Found results in %s. Here is the context:\n\n%s",
		strings.Join(titles, ", "), strings.Join(texts, "\n\n"))
}
