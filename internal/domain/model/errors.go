package model

import "errors"

// Sentinel errors shared by every layer. Adapters wrap these with context;
// the HTTP adapter maps them to status codes with errors.Is.
var (
	// ErrUnauthorized indicates a missing identity or an organization mismatch.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates a missing organization context, credential,
	// conversation, plugin, or document.
	ErrNotFound = errors.New("not found")

	// ErrInvalidKeyMaterial indicates a master secret shorter than eight characters.
	ErrInvalidKeyMaterial = errors.New("invalid key material")

	// ErrEmptyKeyMaterial indicates the master secret decoded to zero bytes.
	ErrEmptyKeyMaterial = errors.New("empty key material")

	// ErrDecryptionFailed indicates a malformed, tampered, or wrong-key payload.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrConversationResolved indicates a message was rejected because the
	// conversation is resolved.
	ErrConversationResolved = errors.New("conversation is resolved")

	// ErrUpstreamService indicates a third-party provider call failed.
	ErrUpstreamService = errors.New("upstream service error")

	// ErrConfigurationMissing indicates a required process-level setting is absent.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrConflict indicates a compare-and-swap update lost against a concurrent writer.
	ErrConflict = errors.New("conflict")

	// ErrInvalidStatusTransition indicates a status change the state machine does not allow.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrInvalidArgument indicates a malformed request value such as an unknown service.
	ErrInvalidArgument = errors.New("invalid argument")
)
