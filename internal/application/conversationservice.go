package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// ConversationService owns the conversation lifecycle. Every status change
// is checked against model.CanTransition and applied as a compare-and-swap
// on the conversation version.
type ConversationService struct {
	conversations driven.ConversationStore
	sessions      driven.ContactSessionStore
	logger        *slog.Logger
	now           func() time.Time
}

// NewConversationService creates a ConversationService.
func NewConversationService(conversations driven.ConversationStore, sessions driven.ContactSessionStore, logger *slog.Logger) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		sessions:      sessions,
		logger:        logger,
		now:           time.Now,
	}
}

// Create opens a new unresolved conversation with its own thread for a
// contact session of organizationID.
func (s *ConversationService) Create(ctx context.Context, organizationID, contactSessionID string) (model.Conversation, error) {
	session, err := s.sessions.GetByID(ctx, contactSessionID)
	if err != nil {
		return model.Conversation{}, err
	}
	if err := s.checkSession(session, organizationID); err != nil {
		return model.Conversation{}, err
	}

	conv, err := s.conversations.Create(ctx, model.Conversation{
		ID:               uuid.NewString(),
		OrganizationID:   organizationID,
		ThreadID:         uuid.NewString(),
		ContactSessionID: contactSessionID,
		Status:           model.StatusUnresolved,
	})
	if err != nil {
		return model.Conversation{}, err
	}

	s.logger.Info("conversation created", "organization_id", organizationID, "conversation_id", conv.ID)
	return conv, nil
}

// Get returns a conversation owned by the caller's organization.
func (s *ConversationService) Get(ctx context.Context, identity *model.Identity, id string) (model.Conversation, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return model.Conversation{}, err
	}

	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return model.Conversation{}, err
	}
	if _, err := requireSameOrganization(identity, conv.OrganizationID); err != nil {
		s.logger.Warn("cross-organization conversation access", "organization_id", org, "conversation_id", id)
		return model.Conversation{}, err
	}
	return conv, nil
}

// GetForSession returns a conversation for a widget caller, who must present
// the contact session the conversation belongs to.
func (s *ConversationService) GetForSession(ctx context.Context, organizationID, id, contactSessionID string) (model.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return model.Conversation{}, err
	}
	if conv.OrganizationID != organizationID || conv.ContactSessionID != contactSessionID {
		return model.Conversation{}, fmt.Errorf("conversation %q not owned by session: %w", id, model.ErrUnauthorized)
	}

	session, err := s.sessions.GetByID(ctx, contactSessionID)
	if err != nil {
		return model.Conversation{}, err
	}
	if err := s.checkSession(session, organizationID); err != nil {
		return model.Conversation{}, err
	}
	return conv, nil
}

// ByThread returns the conversation bound to threadID. It performs no tenant
// check and is meant for the agent, which only ever holds a thread ID.
func (s *ConversationService) ByThread(ctx context.Context, threadID string) (model.Conversation, error) {
	return s.conversations.GetByThreadID(ctx, threadID)
}

// List returns the caller's conversations, newest first.
func (s *ConversationService) List(ctx context.Context, identity *model.Identity, filter driven.ConversationFilter) ([]model.Conversation, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return nil, err
	}
	return s.conversations.ListByOrganization(ctx, org, filter)
}

// UpdateStatus applies an operator status toggle. A non-zero expectedVersion
// must match the stored version or model.ErrConflict is returned; zero means
// the caller accepts whatever version is current.
func (s *ConversationService) UpdateStatus(ctx context.Context, identity *model.Identity, id string, status model.ConversationStatus, expectedVersion int64) (model.Conversation, error) {
	conv, err := s.Get(ctx, identity, id)
	if err != nil {
		return model.Conversation{}, err
	}

	if expectedVersion != 0 && expectedVersion != conv.Version {
		return conv, fmt.Errorf("conversation %q at version %d, expected %d: %w", id, conv.Version, expectedVersion, model.ErrConflict)
	}

	return s.transition(ctx, conv, status)
}

// Escalate hands the conversation on threadID to a human operator.
func (s *ConversationService) Escalate(ctx context.Context, threadID string) (model.Conversation, error) {
	return s.transitionByThread(ctx, threadID, model.StatusEscalated)
}

// Resolve closes the conversation on threadID.
func (s *ConversationService) Resolve(ctx context.Context, threadID string) (model.Conversation, error) {
	return s.transitionByThread(ctx, threadID, model.StatusResolved)
}

// ContactSession returns the contact session behind a conversation owned by
// the caller's organization.
func (s *ConversationService) ContactSession(ctx context.Context, identity *model.Identity, conversationID string) (model.ContactSession, error) {
	conv, err := s.Get(ctx, identity, conversationID)
	if err != nil {
		return model.ContactSession{}, err
	}
	return s.sessions.GetByID(ctx, conv.ContactSessionID)
}

// transitionByThread applies a system transition, reloading once if another
// writer changed the conversation between the read and the swap.
func (s *ConversationService) transitionByThread(ctx context.Context, threadID string, to model.ConversationStatus) (model.Conversation, error) {
	conv, err := s.conversations.GetByThreadID(ctx, threadID)
	if err != nil {
		return model.Conversation{}, err
	}

	updated, err := s.transition(ctx, conv, to)
	if !errors.Is(err, model.ErrConflict) {
		return updated, err
	}

	conv, err = s.conversations.GetByThreadID(ctx, threadID)
	if err != nil {
		return model.Conversation{}, err
	}
	return s.transition(ctx, conv, to)
}

func (s *ConversationService) transition(ctx context.Context, conv model.Conversation, to model.ConversationStatus) (model.Conversation, error) {
	if !model.CanTransition(conv.Status, to) {
		return conv, fmt.Errorf("conversation %q from %s to %s: %w", conv.ID, conv.Status, to, model.ErrInvalidStatusTransition)
	}
	if conv.Status == to {
		return conv, nil
	}

	updated, err := s.conversations.UpdateStatus(ctx, conv.ID, to, conv.Version)
	if err != nil {
		return updated, err
	}

	s.logger.Info("conversation status changed",
		"organization_id", conv.OrganizationID,
		"conversation_id", conv.ID,
		"from", conv.Status,
		"to", to,
	)
	return updated, nil
}

func (s *ConversationService) checkSession(session model.ContactSession, organizationID string) error {
	if session.OrganizationID != organizationID {
		return fmt.Errorf("contact session %q belongs to another organization: %w", session.ID, model.ErrUnauthorized)
	}
	if session.Expired(s.now()) {
		return fmt.Errorf("contact session %q expired: %w", session.ID, model.ErrUnauthorized)
	}
	return nil
}
