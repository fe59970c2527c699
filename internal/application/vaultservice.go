package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/supportdesk/internal/cipher"
	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// VaultService encrypts third-party credentials under the process master
// secret and persists them through the CredentialStore. Plaintext keys never
// reach the store and are never logged.
type VaultService struct {
	store        driven.CredentialStore
	keyring      *cipher.Keyring
	masterSecret string
	logger       *slog.Logger
}

// NewVaultService creates a VaultService. An empty masterSecret is accepted
// here; every operation then fails with model.ErrConfigurationMissing.
func NewVaultService(store driven.CredentialStore, keyring *cipher.Keyring, masterSecret string, logger *slog.Logger) *VaultService {
	return &VaultService{
		store:        store,
		keyring:      keyring,
		masterSecret: masterSecret,
		logger:       logger,
	}
}

// Upsert stores plaintext as the keyType credential of service for the
// caller's organization, replacing any existing row.
func (s *VaultService) Upsert(ctx context.Context, identity *model.Identity, service model.Service, keyType model.KeyType, plaintext string) (model.Credential, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return model.Credential{}, err
	}
	return s.Store(ctx, org, service, keyType, model.KeyNameFor(org, service, keyType), plaintext)
}

// UpsertBothKeys stores the public and private keys of service for the
// caller's organization. Each row is written atomically on its own.
func (s *VaultService) UpsertBothKeys(ctx context.Context, identity *model.Identity, service model.Service, publicKey, privateKey string) error {
	org, err := requireOrganization(identity)
	if err != nil {
		return err
	}

	keys := []struct {
		keyType   model.KeyType
		plaintext string
	}{
		{model.KeyTypePublic, publicKey},
		{model.KeyTypePrivate, privateKey},
	}
	for _, k := range keys {
		if _, err := s.Store(ctx, org, service, k.keyType, model.KeyNameFor(org, service, k.keyType), k.plaintext); err != nil {
			return err
		}
	}
	return nil
}

// Store encrypts plaintext and inserts or patches the credential row for
// (organizationID, service, keyType). It trusts organizationID and is meant
// for system callers that have already established the tenant.
func (s *VaultService) Store(ctx context.Context, organizationID string, service model.Service, keyType model.KeyType, keyName, plaintext string) (model.Credential, error) {
	if plaintext == "" {
		return model.Credential{}, fmt.Errorf("empty %s key for %s: %w", keyType, service, model.ErrInvalidArgument)
	}

	payload, err := s.keyring.Encrypt(s.masterSecret, plaintext)
	if err != nil {
		return model.Credential{}, fmt.Errorf("encrypt %s key for %s: %w", keyType, service, err)
	}

	cred, err := s.store.Upsert(ctx, model.Credential{
		OrganizationID:   organizationID,
		Service:          service,
		KeyType:          keyType,
		KeyName:          keyName,
		EncryptedPayload: payload,
		IsActive:         true,
	})
	if err != nil {
		return model.Credential{}, err
	}

	s.logger.Info("credential stored",
		"organization_id", organizationID,
		"service", service,
		"key_type", keyType,
		"version", cred.Version,
	)
	return cred, nil
}

// Get returns the stored credential row without decrypting it.
func (s *VaultService) Get(ctx context.Context, organizationID string, service model.Service, keyType model.KeyType) (model.Credential, error) {
	return s.store.Get(ctx, organizationID, service, keyType)
}

// List returns every stored credential row of service for the organization,
// ordered by key type.
func (s *VaultService) List(ctx context.Context, organizationID string, service model.Service) ([]model.Credential, error) {
	return s.store.ListByService(ctx, organizationID, service)
}

// Decrypt opens the payload of an already loaded credential.
func (s *VaultService) Decrypt(cred model.Credential) (string, error) {
	plaintext, err := s.keyring.Decrypt(s.masterSecret, cred.EncryptedPayload)
	if err != nil {
		s.logger.Error("credential decryption failed",
			"organization_id", cred.OrganizationID,
			"service", cred.Service,
			"key_type", cred.KeyType,
		)
		return "", fmt.Errorf("decrypt %s key for %s: %w", cred.KeyType, cred.Service, err)
	}
	return plaintext, nil
}

// RemoveAll deletes every credential of service for the organization in one
// statement. Returns model.ErrNotFound when nothing was stored.
func (s *VaultService) RemoveAll(ctx context.Context, organizationID string, service model.Service) error {
	n, err := s.store.DeleteByService(ctx, organizationID, service)
	if err != nil {
		return err
	}
	s.logger.Info("credentials removed", "organization_id", organizationID, "service", service, "count", n)
	return nil
}
