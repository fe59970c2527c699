package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

const (
	// historySize is how many thread messages an agent turn replays.
	historySize = 30

	// fallbackReply is persisted when the model ends a turn without text.
	fallbackReply = "Sorry, I could not come up with an answer. A human operator can help if you ask for one."
)

// Agent runs support-agent turns on a thread: it replays recent history to
// the language model, dispatches the tools the model calls, and appends the
// final reply to the thread.
type Agent struct {
	llm      driven.LanguageModel
	threads  driven.ThreadStore
	tools    *ToolRegistry
	maxSteps int
	logger   *slog.Logger
}

// NewAgent creates an Agent. maxSteps bounds the tool-using steps of one
// turn and is raised to 1 if smaller.
func NewAgent(llm driven.LanguageModel, threads driven.ThreadStore, tools *ToolRegistry, maxSteps int, logger *slog.Logger) *Agent {
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &Agent{
		llm:      llm,
		threads:  threads,
		tools:    tools,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Respond runs one agent turn for the conversation on threadID and returns
// the persisted assistant message. Each step dispatches at most one tool;
// once maxSteps is spent the model must give a final text answer. The tools
// stay declared on that call so providers accept the earlier tool turns.
func (a *Agent) Respond(ctx context.Context, tc ToolContext) (model.Message, error) {
	if tc.ThreadID == "" {
		return model.Message{}, fmt.Errorf("agent turn without thread: %w", model.ErrInvalidArgument)
	}

	history, err := a.threads.Recent(ctx, tc.ThreadID, historySize)
	if err != nil {
		return model.Message{}, err
	}

	req := driven.CompletionRequest{
		System:   supportAgentPrompt,
		Messages: toChatMessages(history),
		Tools:    a.tools.Definitions(),
	}

	var reply string
	for step := 0; ; step++ {
		if step == a.maxSteps {
			req.RequireText = true
		}

		completion, err := a.llm.Complete(ctx, req)
		if err != nil {
			return model.Message{}, fmt.Errorf("agent step %d: %w", step+1, err)
		}

		if len(completion.ToolCalls) == 0 || req.RequireText {
			reply = completion.Text
			break
		}

		call := completion.ToolCalls[0]
		if len(completion.ToolCalls) > 1 {
			a.logger.Warn("model requested several tools, running the first",
				"thread_id", tc.ThreadID, "requested", len(completion.ToolCalls))
		}

		result := a.tools.Dispatch(ctx, tc, call)
		a.logger.Info("tool dispatched", "thread_id", tc.ThreadID, "tool", call.Name, "step", step+1)

		req.Messages = append(req.Messages,
			driven.ChatMessage{Role: string(model.RoleAssistant), Content: completion.Text, ToolCalls: []driven.ToolCall{call}},
			driven.ChatMessage{Role: string(model.RoleTool), Content: result, ToolCallID: call.ID},
		)
	}

	if strings.TrimSpace(reply) == "" {
		reply = fallbackReply
	}

	return a.threads.Append(ctx, model.Message{
		ThreadID: tc.ThreadID,
		Role:     model.RoleAssistant,
		Content:  reply,
	})
}

// toChatMessages replays stored thread messages. Tool entries are internal
// to a turn and are not replayed.
func toChatMessages(history []model.Message) []driven.ChatMessage {
	msgs := make([]driven.ChatMessage, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case model.RoleUser, model.RoleAssistant:
			msgs = append(msgs, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
		}
	}
	return msgs
}
