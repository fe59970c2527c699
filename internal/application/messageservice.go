package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// contactSessionTTL is how long a widget visitor session stays valid.
const contactSessionTTL = 24 * time.Hour

// MessageService appends messages to conversation threads for operators and
// widget visitors, and triggers agent turns for visitor messages.
type MessageService struct {
	conversations *ConversationService
	sessions      driven.ContactSessionStore
	threads       driven.ThreadStore
	agent         *Agent
	llm           driven.LanguageModel
	logger        *slog.Logger
	now           func() time.Time
}

// NewMessageService creates a MessageService.
func NewMessageService(
	conversations *ConversationService,
	sessions driven.ContactSessionStore,
	threads driven.ThreadStore,
	agent *Agent,
	llm driven.LanguageModel,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		sessions:      sessions,
		threads:       threads,
		agent:         agent,
		llm:           llm,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateOperatorMessage appends an operator reply to a conversation owned by
// the caller's organization. The message carries the operator's family name.
func (s *MessageService) CreateOperatorMessage(ctx context.Context, identity *model.Identity, conversationID, prompt string) (model.Message, error) {
	conv, err := s.conversations.Get(ctx, identity, conversationID)
	if err != nil {
		return model.Message{}, err
	}
	if conv.Status == model.StatusResolved {
		return model.Message{}, fmt.Errorf("conversation %q: %w", conv.ID, model.ErrConversationResolved)
	}
	if strings.TrimSpace(prompt) == "" {
		return model.Message{}, fmt.Errorf("empty message: %w", model.ErrInvalidArgument)
	}

	return s.threads.Append(ctx, model.Message{
		ThreadID:  conv.ThreadID,
		Role:      model.RoleAssistant,
		AgentName: identity.FamilyName,
		Content:   prompt,
	})
}

// List returns a page of a thread whose conversation belongs to the caller's
// organization.
func (s *MessageService) List(ctx context.Context, identity *model.Identity, threadID string, cursor int64, limit int) (model.MessagePage, error) {
	if _, err := requireOrganization(identity); err != nil {
		return model.MessagePage{}, err
	}

	conv, err := s.conversations.ByThread(ctx, threadID)
	if err != nil {
		return model.MessagePage{}, err
	}
	if _, err := requireSameOrganization(identity, conv.OrganizationID); err != nil {
		return model.MessagePage{}, err
	}

	return s.threads.List(ctx, threadID, cursor, limit)
}

// EnhanceResponse asks the language model to polish an operator's draft.
func (s *MessageService) EnhanceResponse(ctx context.Context, identity *model.Identity, prompt string) (string, error) {
	if _, err := requireOrganization(identity); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("empty draft: %w", model.ErrInvalidArgument)
	}

	completion, err := s.llm.Complete(ctx, driven.CompletionRequest{
		System:   enhanceResponsePrompt,
		Messages: []driven.ChatMessage{{Role: string(model.RoleUser), Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("enhance response: %w", err)
	}
	return completion.Text, nil
}

// CreateContactSession registers a widget visitor for organizationID.
func (s *MessageService) CreateContactSession(ctx context.Context, organizationID, name, email string, metadata map[string]string) (model.ContactSession, error) {
	if organizationID == "" {
		return model.ContactSession{}, fmt.Errorf("organization ID not found: %w", model.ErrNotFound)
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return model.ContactSession{}, fmt.Errorf("name and email are required: %w", model.ErrInvalidArgument)
	}

	now := s.now().UTC()
	return s.sessions.Create(ctx, model.ContactSession{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Name:           name,
		Email:          email,
		Metadata:       metadata,
		ExpiresAt:      now.Add(contactSessionTTL),
		CreatedAt:      now,
	})
}

// StartConversation opens a conversation for a widget visitor.
func (s *MessageService) StartConversation(ctx context.Context, organizationID, contactSessionID string) (model.Conversation, error) {
	return s.conversations.Create(ctx, organizationID, contactSessionID)
}

// SendUserMessage appends a visitor message and, while the conversation is
// unresolved, runs an agent turn. It returns the visitor message and the
// agent reply, if any. Once the message is stored the call succeeds: a failed
// agent turn is logged and yields no reply, so a client retry cannot store
// the message twice.
func (s *MessageService) SendUserMessage(ctx context.Context, organizationID, conversationID, contactSessionID, text string) (model.Message, *model.Message, error) {
	conv, err := s.conversations.GetForSession(ctx, organizationID, conversationID, contactSessionID)
	if err != nil {
		return model.Message{}, nil, err
	}
	if conv.Status == model.StatusResolved {
		return model.Message{}, nil, fmt.Errorf("conversation %q: %w", conv.ID, model.ErrConversationResolved)
	}
	if strings.TrimSpace(text) == "" {
		return model.Message{}, nil, fmt.Errorf("empty message: %w", model.ErrInvalidArgument)
	}

	msg, err := s.threads.Append(ctx, model.Message{
		ThreadID: conv.ThreadID,
		Role:     model.RoleUser,
		Content:  text,
	})
	if err != nil {
		return model.Message{}, nil, err
	}

	if conv.Status != model.StatusUnresolved {
		return msg, nil, nil
	}

	reply, err := s.agent.Respond(ctx, ToolContext{ThreadID: conv.ThreadID, OrganizationID: conv.OrganizationID})
	if err != nil {
		s.logger.Error("agent turn failed", "conversation_id", conv.ID, "thread_id", conv.ThreadID, "error", err)
		return msg, nil, nil
	}
	return msg, &reply, nil
}
