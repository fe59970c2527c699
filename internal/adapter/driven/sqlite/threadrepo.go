package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ThreadStore = (*ThreadRepo)(nil)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200
)

// ThreadRepo is the SQLite implementation of the ThreadStore port interface.
// Message IDs are monotonically increasing and double as pagination cursors.
type ThreadRepo struct {
	db  *DB
	now func() time.Time
}

// NewThreadRepo creates a new ThreadRepo backed by the given DB.
func NewThreadRepo(db *DB) *ThreadRepo {
	return &ThreadRepo{db: db, now: time.Now}
}

// Append adds a message to the end of its thread.
func (r *ThreadRepo) Append(ctx context.Context, msg model.Message) (model.Message, error) {
	const query = `
		INSERT INTO messages (thread_id, role, agent_name, content, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now().UTC()
	}

	err := r.db.Writer.QueryRowContext(ctx, query,
		msg.ThreadID,
		string(msg.Role),
		msg.AgentName,
		msg.Content,
		formatTime(msg.CreatedAt),
	).Scan(&msg.ID)
	if err != nil {
		return model.Message{}, fmt.Errorf("append message to thread %q: %w", msg.ThreadID, err)
	}

	return msg, nil
}

// List returns up to limit messages after cursor, oldest first. NextCursor is
// set only when more messages follow.
func (r *ThreadRepo) List(ctx context.Context, threadID string, cursor int64, limit int) (model.MessagePage, error) {
	const query = `
		SELECT id, thread_id, role, agent_name, content, created_at
		FROM messages
		WHERE thread_id = ? AND id > ?
		ORDER BY id
		LIMIT ?`

	limit = clampPageSize(limit)

	// Fetch one extra row to learn whether another page exists.
	msgs, err := r.query(ctx, query, threadID, cursor, limit+1)
	if err != nil {
		return model.MessagePage{}, err
	}

	page := model.MessagePage{Messages: msgs}
	if len(msgs) > limit {
		page.Messages = msgs[:limit]
		page.NextCursor = msgs[limit-1].ID
	}

	return page, nil
}

// Recent returns the newest limit messages of a thread, oldest first.
func (r *ThreadRepo) Recent(ctx context.Context, threadID string, limit int) ([]model.Message, error) {
	const query = `
		SELECT id, thread_id, role, agent_name, content, created_at
		FROM (
			SELECT id, thread_id, role, agent_name, content, created_at
			FROM messages
			WHERE thread_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id`

	return r.query(ctx, query, threadID, clampPageSize(limit))
}

func (r *ThreadRepo) query(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var (
			msg       model.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &role, &msg.AgentName, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = model.MessageRole(role)
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return msgs, nil
}

func clampPageSize(limit int) int {
	if limit <= 0 {
		return defaultMessagePageSize
	}
	if limit > maxMessagePageSize {
		return maxMessagePageSize
	}
	return limit
}
