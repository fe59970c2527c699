package driven

import (
	"context"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// VoiceProvider is the third-party voice platform, authenticated with an
// organization's decrypted private key. Failures wrap model.ErrUpstreamService.
type VoiceProvider interface {
	ListPhoneNumbers(ctx context.Context) ([]model.PhoneNumber, error)
	ListAssistants(ctx context.Context) ([]model.Assistant, error)
}

// VoiceProviderFactory hands out one VoiceProvider per organization.
type VoiceProviderFactory interface {
	// Provider returns the organization's client for privateKey. A client
	// built from an older key is replaced.
	Provider(organizationID, privateKey string) VoiceProvider
	// Forget releases the organization's client and the key it holds.
	Forget(organizationID string)
}
