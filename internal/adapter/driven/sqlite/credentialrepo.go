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
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// It persists ciphertext produced by the vault and never sees plaintext keys.
type CredentialRepo struct {
	db  *DB
	now func() time.Time
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db, now: time.Now}
}

// Upsert inserts a credential or replaces the key name and payload of the
// existing (organization, service, key type) row in one statement.
func (r *CredentialRepo) Upsert(ctx context.Context, cred model.Credential) (model.Credential, error) {
	const query = `
		INSERT INTO credentials
			(organization_id, service, key_type, key_name, encrypted_payload, is_active, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (organization_id, service, key_type) DO UPDATE SET
			key_name          = excluded.key_name,
			encrypted_payload = excluded.encrypted_payload,
			is_active         = excluded.is_active,
			version           = credentials.version + 1,
			updated_at        = excluded.updated_at
		RETURNING id, version`

	now := r.now().UTC()
	ts := formatTime(now)

	err := r.db.Writer.QueryRowContext(ctx, query,
		cred.OrganizationID,
		string(cred.Service),
		string(cred.KeyType),
		cred.KeyName,
		cred.EncryptedPayload,
		boolToInt(cred.IsActive),
		ts,
		ts,
	).Scan(&cred.ID, &cred.Version)
	if err != nil {
		return model.Credential{}, fmt.Errorf("upsert credential %s/%s/%s: %w", cred.OrganizationID, cred.Service, cred.KeyType, err)
	}

	cred.UpdatedAt = now
	return cred, nil
}

// Get returns the credential for (organizationID, service, keyType) or model.ErrNotFound.
func (r *CredentialRepo) Get(ctx context.Context, organizationID string, service model.Service, keyType model.KeyType) (model.Credential, error) {
	const query = `
		SELECT id, organization_id, service, key_type, key_name, encrypted_payload, is_active, version, updated_at
		FROM credentials
		WHERE organization_id = ? AND service = ? AND key_type = ?`

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, organizationID, string(service), string(keyType)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, fmt.Errorf("credential %s/%s/%s: %w", organizationID, service, keyType, model.ErrNotFound)
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential %s/%s/%s: %w", organizationID, service, keyType, err)
	}
	return cred, nil
}

// ListByService returns every credential stored for (organizationID, service), ordered by key type.
func (r *CredentialRepo) ListByService(ctx context.Context, organizationID string, service model.Service) ([]model.Credential, error) {
	const query = `
		SELECT id, organization_id, service, key_type, key_name, encrypted_payload, is_active, version, updated_at
		FROM credentials
		WHERE organization_id = ? AND service = ?
		ORDER BY key_type`

	rows, err := r.db.Reader.QueryContext(ctx, query, organizationID, string(service))
	if err != nil {
		return nil, fmt.Errorf("list credentials %s/%s: %w", organizationID, service, err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// DeleteByService removes all credentials for (organizationID, service) in a
// single statement, so either every row goes or none does.
func (r *CredentialRepo) DeleteByService(ctx context.Context, organizationID string, service model.Service) (int64, error) {
	const query = `DELETE FROM credentials WHERE organization_id = ? AND service = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, organizationID, string(service))
	if err != nil {
		return 0, fmt.Errorf("delete credentials %s/%s: %w", organizationID, service, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return 0, fmt.Errorf("credentials %s/%s: %w", organizationID, service, model.ErrNotFound)
	}

	return rows, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (model.Credential, error) {
	var (
		cred      model.Credential
		service   string
		keyType   string
		isActive  int
		updatedAt string
	)

	err := row.Scan(
		&cred.ID,
		&cred.OrganizationID,
		&service,
		&keyType,
		&cred.KeyName,
		&cred.EncryptedPayload,
		&isActive,
		&cred.Version,
		&updatedAt,
	)
	if err != nil {
		return model.Credential{}, err
	}

	cred.Service = model.Service(service)
	cred.KeyType = model.KeyType(keyType)
	cred.IsActive = isActive != 0

	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return model.Credential{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return cred, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
