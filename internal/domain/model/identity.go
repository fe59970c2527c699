package model

// Identity is the caller as asserted by the external identity provider.
type Identity struct {
	Subject        string
	OrganizationID string
	FamilyName     string
}
