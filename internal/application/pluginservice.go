package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/supportdesk/internal/cipher"
	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// PluginService derives plugin connections from the credentials held in the
// vault and brokers calls to connected third-party services.
type PluginService struct {
	vault  *VaultService
	voice  driven.VoiceProviderFactory
	logger *slog.Logger
}

// NewPluginService creates a PluginService. voice builds provider clients
// from decrypted private keys.
func NewPluginService(vault *VaultService, voice driven.VoiceProviderFactory, logger *slog.Logger) *PluginService {
	return &PluginService{
		vault:  vault,
		voice:  voice,
		logger: logger,
	}
}

// GetConnection returns the connection for (organizationID, service). The
// service counts as connected only when an active row of every required key
// type exists; otherwise model.ErrNotFound is returned.
func (s *PluginService) GetConnection(ctx context.Context, organizationID string, service model.Service) (model.PluginConnection, error) {
	required := service.RequiredKeyTypes()
	if len(required) == 0 {
		return model.PluginConnection{}, fmt.Errorf("service %q has no key types: %w", service, model.ErrInvalidArgument)
	}

	creds := make([]model.Credential, len(required))
	g, gctx := errgroup.WithContext(ctx)
	for i, keyType := range required {
		g.Go(func() error {
			cred, err := s.vault.Get(gctx, organizationID, service, keyType)
			if err != nil {
				return err
			}
			if !cred.IsActive {
				return fmt.Errorf("%s key for %s is inactive: %w", keyType, service, model.ErrNotFound)
			}
			creds[i] = cred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.PluginConnection{}, fmt.Errorf("plugin %s not connected: %w", service, err)
	}

	conn := model.PluginConnection{OrganizationID: organizationID, Service: service}
	for _, cred := range creds {
		switch cred.KeyType {
		case model.KeyTypePrivate:
			conn.Private = cred
		case model.KeyTypePublic:
			conn.Public = cred
		}
	}
	return conn, nil
}

// GetOne returns the operator view of the service's private credential with
// the key masked.
func (s *PluginService) GetOne(ctx context.Context, identity *model.Identity, service model.Service) (model.PluginView, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return model.PluginView{}, err
	}

	cred, err := s.vault.Get(ctx, org, service, model.KeyTypePrivate)
	if err != nil {
		return model.PluginView{}, err
	}
	return s.view(cred)
}

// Keys returns the masked operator view of every key stored for service,
// including rows that alone do not make the service connected. An empty
// slice means nothing is stored.
func (s *PluginService) Keys(ctx context.Context, identity *model.Identity, service model.Service) ([]model.PluginView, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return nil, err
	}

	creds, err := s.vault.List(ctx, org, service)
	if err != nil {
		return nil, err
	}

	views := make([]model.PluginView, 0, len(creds))
	for _, cred := range creds {
		view, err := s.view(cred)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *PluginService) view(cred model.Credential) (model.PluginView, error) {
	plaintext, err := s.vault.Decrypt(cred)
	if err != nil {
		return model.PluginView{}, err
	}

	return model.PluginView{
		Service:   cred.Service,
		KeyType:   cred.KeyType,
		KeyName:   cred.KeyName,
		MaskedKey: cipher.MaskKey(plaintext),
		IsActive:  cred.IsActive,
		UpdatedAt: cred.UpdatedAt,
	}, nil
}

// Disconnect removes every credential of service for the caller's
// organization and drops any provider client built from them. Returns
// model.ErrNotFound when the service was not stored.
func (s *PluginService) Disconnect(ctx context.Context, identity *model.Identity, service model.Service) error {
	org, err := requireOrganization(identity)
	if err != nil {
		return err
	}
	if service == model.ServiceVapi {
		defer s.voice.Forget(org)
	}
	return s.vault.RemoveAll(ctx, org, service)
}

// PublicKey returns the decrypted public key of a connected service. It is
// served to unauthenticated widget clients: the private row only gates the
// answer and is never decrypted.
func (s *PluginService) PublicKey(ctx context.Context, organizationID string, service model.Service) (string, error) {
	conn, err := s.GetConnection(ctx, organizationID, service)
	if err != nil {
		return "", err
	}
	return s.vault.Decrypt(conn.Public)
}

// ListPhoneNumbers lists the voice provider's phone numbers for the caller's
// organization.
func (s *PluginService) ListPhoneNumbers(ctx context.Context, identity *model.Identity) ([]model.PhoneNumber, error) {
	provider, err := s.voiceProvider(ctx, identity)
	if err != nil {
		return nil, err
	}
	numbers, err := provider.ListPhoneNumbers(ctx)
	if err != nil {
		return nil, upstream("list phone numbers", err)
	}
	return numbers, nil
}

// ListAssistants lists the voice provider's assistants for the caller's
// organization.
func (s *PluginService) ListAssistants(ctx context.Context, identity *model.Identity) ([]model.Assistant, error) {
	provider, err := s.voiceProvider(ctx, identity)
	if err != nil {
		return nil, err
	}
	assistants, err := provider.ListAssistants(ctx)
	if err != nil {
		return nil, upstream("list assistants", err)
	}
	return assistants, nil
}

func (s *PluginService) voiceProvider(ctx context.Context, identity *model.Identity) (driven.VoiceProvider, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return nil, err
	}

	conn, err := s.GetConnection(ctx, org, model.ServiceVapi)
	if err != nil {
		return nil, err
	}

	privateKey, err := s.vault.Decrypt(conn.Private)
	if err != nil {
		return nil, err
	}
	return s.voice.Provider(org, privateKey), nil
}

// upstream tags a provider failure as model.ErrUpstreamService unless the
// provider already did.
func upstream(op string, err error) error {
	if errors.Is(err, model.ErrUpstreamService) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrUpstreamService, err)
}
