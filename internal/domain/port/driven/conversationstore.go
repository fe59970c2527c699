package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// ConversationFilter narrows a conversation listing. Zero values mean no filter.
type ConversationFilter struct {
	Status model.ConversationStatus
	Cursor string // ID of the last conversation on the previous page.
	Limit  int
}

// ConversationStore defines the driven port for conversation persistence.
type ConversationStore interface {
	Create(ctx context.Context, conv model.Conversation) (model.Conversation, error)

	// GetByID returns model.ErrNotFound when the conversation does not exist.
	GetByID(ctx context.Context, id string) (model.Conversation, error)

	// GetByThreadID returns model.ErrNotFound when no conversation uses threadID.
	GetByThreadID(ctx context.Context, threadID string) (model.Conversation, error)

	// ListByOrganization returns conversations newest first.
	ListByOrganization(ctx context.Context, organizationID string, filter ConversationFilter) ([]model.Conversation, error)

	// UpdateStatus sets the status only if the stored version equals
	// expectedVersion, bumping the version. Returns model.ErrConflict on a
	// version mismatch and model.ErrNotFound when the row is missing.
	UpdateStatus(ctx context.Context, id string, status model.ConversationStatus, expectedVersion int64) (model.Conversation, error)
}

// ContactSessionStore defines the driven port for widget visitor sessions.
type ContactSessionStore interface {
	Create(ctx context.Context, session model.ContactSession) (model.ContactSession, error)

	// GetByID returns model.ErrNotFound when the session does not exist.
	GetByID(ctx context.Context, id string) (model.ContactSession, error)

	// DeleteExpired removes sessions that expired before cutoff and never
	// opened a conversation, returning how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
