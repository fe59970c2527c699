package driven

import (
	"context"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// CredentialStore defines the driven port for encrypted credential rows.
// Implementations store ciphertext only; encryption happens in the vault.
type CredentialStore interface {
	// Upsert inserts the credential or, when a row for (OrganizationID,
	// Service, KeyType) exists, replaces its key name and payload in a single
	// write. Returns the stored row with its new Version.
	Upsert(ctx context.Context, cred model.Credential) (model.Credential, error)

	// Get returns the row for (organizationID, service, keyType).
	// Returns model.ErrNotFound when no row exists.
	Get(ctx context.Context, organizationID string, service model.Service, keyType model.KeyType) (model.Credential, error)

	// ListByService returns every row for (organizationID, service).
	ListByService(ctx context.Context, organizationID string, service model.Service) ([]model.Credential, error)

	// DeleteByService removes every row for (organizationID, service) in one
	// statement. Returns model.ErrNotFound when no rows matched.
	DeleteByService(ctx context.Context, organizationID string, service model.Service) (int64, error)
}
