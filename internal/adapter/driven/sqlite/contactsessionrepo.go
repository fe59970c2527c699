package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ContactSessionStore = (*ContactSessionRepo)(nil)

// ContactSessionRepo is the SQLite implementation of the ContactSessionStore port interface.
type ContactSessionRepo struct {
	db  *DB
	now func() time.Time
}

// NewContactSessionRepo creates a new ContactSessionRepo backed by the given DB.
func NewContactSessionRepo(db *DB) *ContactSessionRepo {
	return &ContactSessionRepo{db: db, now: time.Now}
}

// Create inserts a contact session. Metadata is stored as a JSON object.
func (r *ContactSessionRepo) Create(ctx context.Context, session model.ContactSession) (model.ContactSession, error) {
	const query = `
		INSERT INTO contact_sessions (id, organization_id, name, email, metadata, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if session.Metadata == nil {
		session.Metadata = map[string]string{}
	}
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return model.ContactSession{}, fmt.Errorf("marshal contact session metadata: %w", err)
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.now().UTC()
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		session.ID,
		session.OrganizationID,
		session.Name,
		session.Email,
		string(metadata),
		formatTime(session.ExpiresAt),
		formatTime(session.CreatedAt),
	)
	if err != nil {
		return model.ContactSession{}, fmt.Errorf("create contact session %q: %w", session.ID, err)
	}

	return session, nil
}

// GetByID returns the contact session with the given ID or model.ErrNotFound.
func (r *ContactSessionRepo) GetByID(ctx context.Context, id string) (model.ContactSession, error) {
	const query = `
		SELECT id, organization_id, name, email, metadata, expires_at, created_at
		FROM contact_sessions WHERE id = ?`

	var (
		session   model.ContactSession
		metadata  string
		expiresAt string
		createdAt string
	)

	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.OrganizationID,
		&session.Name,
		&session.Email,
		&metadata,
		&expiresAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ContactSession{}, fmt.Errorf("contact session %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.ContactSession{}, fmt.Errorf("get contact session %q: %w", id, err)
	}

	if err := json.Unmarshal([]byte(metadata), &session.Metadata); err != nil {
		return model.ContactSession{}, fmt.Errorf("unmarshal contact session metadata: %w", err)
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return model.ContactSession{}, fmt.Errorf("parse expires_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.ContactSession{}, fmt.Errorf("parse created_at: %w", err)
	}

	return session, nil
}

// DeleteExpired removes sessions whose expiry is before cutoff and that no
// conversation references.
func (r *ContactSessionRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM contact_sessions
		WHERE expires_at < ?
		  AND NOT EXISTS (SELECT 1 FROM conversations c WHERE c.contact_session_id = contact_sessions.id)`

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete expired contact sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return rows, nil
}
