package model

import "time"

// Credential is one encrypted third-party key stored for an organization.
// It is unique by (OrganizationID, Service, KeyType); EncryptedPayload is
// base64(nonce || ciphertext || tag) and is never plaintext.
type Credential struct {
	ID               int64
	OrganizationID   string
	Service          Service
	KeyType          KeyType
	KeyName          string
	EncryptedPayload string
	IsActive         bool
	Version          int64
	UpdatedAt        time.Time
}

// KeyNameFor builds the canonical key name "<org>-<service>-<keyType>".
func KeyNameFor(organizationID string, service Service, keyType KeyType) string {
	return organizationID + "-" + string(service) + "-" + string(keyType)
}

// PluginConnection is the derived view of a connected service: one active
// credential of each required key type.
type PluginConnection struct {
	OrganizationID string
	Service        Service
	Private        Credential
	Public         Credential
}

// PluginView is the operator-facing summary of a stored credential. The key
// itself is only ever shown masked.
type PluginView struct {
	Service   Service
	KeyType   KeyType
	KeyName   string
	MaskedKey string
	IsActive  bool
	UpdatedAt time.Time
}
