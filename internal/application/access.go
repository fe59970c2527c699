// Package application contains use-case orchestration services.
package application

import (
	"fmt"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// requireOrganization resolves the organization an operator call acts on.
// A nil identity is unauthenticated; an identity without an organization has
// nothing to act on.
func requireOrganization(identity *model.Identity) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("identity not found: %w", model.ErrUnauthorized)
	}
	if identity.OrganizationID == "" {
		return "", fmt.Errorf("organization ID not found: %w", model.ErrNotFound)
	}
	return identity.OrganizationID, nil
}

// requireSameOrganization rejects access to a resource owned by another tenant.
func requireSameOrganization(identity *model.Identity, ownerOrganizationID string) (string, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return "", err
	}
	if org != ownerOrganizationID {
		return "", fmt.Errorf("organization %q cannot access resource of another organization: %w", org, model.ErrUnauthorized)
	}
	return org, nil
}
