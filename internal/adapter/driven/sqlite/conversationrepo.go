package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ConversationStore = (*ConversationRepo)(nil)

const defaultConversationPageSize = 20

const conversationColumns = `id, organization_id, thread_id, contact_session_id, status, version, created_at, updated_at`

// ConversationRepo is the SQLite implementation of the ConversationStore port interface.
type ConversationRepo struct {
	db  *DB
	now func() time.Time
}

// NewConversationRepo creates a new ConversationRepo backed by the given DB.
func NewConversationRepo(db *DB) *ConversationRepo {
	return &ConversationRepo{db: db, now: time.Now}
}

// Create inserts a new conversation at version 1.
func (r *ConversationRepo) Create(ctx context.Context, conv model.Conversation) (model.Conversation, error) {
	const query = `
		INSERT INTO conversations (` + conversationColumns + `)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`

	now := r.now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	conv.Version = 1

	_, err := r.db.Writer.ExecContext(ctx, query,
		conv.ID,
		conv.OrganizationID,
		conv.ThreadID,
		conv.ContactSessionID,
		string(conv.Status),
		formatTime(conv.CreatedAt),
		formatTime(conv.UpdatedAt),
	)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("create conversation %q: %w", conv.ID, err)
	}

	return conv, nil
}

// GetByID returns the conversation with the given ID or model.ErrNotFound.
func (r *ConversationRepo) GetByID(ctx context.Context, id string) (model.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`
	return r.getOne(ctx, r.db.Reader, query, id)
}

// GetByThreadID returns the conversation bound to threadID or model.ErrNotFound.
func (r *ConversationRepo) GetByThreadID(ctx context.Context, threadID string) (model.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE thread_id = ?`
	return r.getOne(ctx, r.db.Reader, query, threadID)
}

func (r *ConversationRepo) getOne(ctx context.Context, q *sql.DB, query, arg string) (model.Conversation, error) {
	conv, err := scanConversation(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Conversation{}, fmt.Errorf("conversation %q: %w", arg, model.ErrNotFound)
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("get conversation %q: %w", arg, err)
	}
	return conv, nil
}

// ListByOrganization returns a page of the organization's conversations,
// newest first, optionally filtered by status and continued after a cursor.
func (r *ConversationRepo) ListByOrganization(ctx context.Context, organizationID string, filter driven.ConversationFilter) ([]model.Conversation, error) {
	const query = `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE organization_id = ?1
		  AND (?2 = '' OR status = ?2)
		  AND (?3 = '' OR (created_at, id) < (SELECT created_at, id FROM conversations WHERE id = ?3))
		ORDER BY created_at DESC, id DESC
		LIMIT ?4`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultConversationPageSize
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, organizationID, string(filter.Status), filter.Cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations for %q: %w", organizationID, err)
	}
	defer rows.Close()

	convs := []model.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return convs, nil
}

// UpdateStatus performs a compare-and-swap on the version column. A stale
// expectedVersion yields model.ErrConflict.
func (r *ConversationRepo) UpdateStatus(ctx context.Context, id string, status model.ConversationStatus, expectedVersion int64) (model.Conversation, error) {
	const update = `
		UPDATE conversations
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	result, err := r.db.Writer.ExecContext(ctx, update, string(status), formatTime(r.now()), id, expectedVersion)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("update conversation %q status: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return model.Conversation{}, fmt.Errorf("check rows affected: %w", err)
	}

	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`
	conv, err := r.getOne(ctx, r.db.Writer, query, id)
	if err != nil {
		return model.Conversation{}, err
	}

	if rows == 0 {
		return conv, fmt.Errorf("conversation %q at version %d, expected %d: %w", id, conv.Version, expectedVersion, model.ErrConflict)
	}

	return conv, nil
}

func scanConversation(row rowScanner) (model.Conversation, error) {
	var (
		conv      model.Conversation
		status    string
		createdAt string
		updatedAt string
	)

	err := row.Scan(
		&conv.ID,
		&conv.OrganizationID,
		&conv.ThreadID,
		&conv.ContactSessionID,
		&status,
		&conv.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return model.Conversation{}, err
	}

	conv.Status = model.ConversationStatus(status)

	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Conversation{}, fmt.Errorf("parse created_at: %w", err)
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Conversation{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return conv, nil
}
