package model

import "fmt"

// Service identifies a third-party integration whose keys live in the vault.
type Service string

const (
	ServiceVapi Service = "vapi"
)

// RequiredKeyTypes lists the key types that must all be present for the
// service to count as connected.
func (s Service) RequiredKeyTypes() []KeyType {
	switch s {
	case ServiceVapi:
		return []KeyType{KeyTypePrivate, KeyTypePublic}
	default:
		return nil
	}
}

// ParseService validates a service name against the closed set of services.
func ParseService(v string) (Service, error) {
	switch Service(v) {
	case ServiceVapi:
		return Service(v), nil
	default:
		return "", fmt.Errorf("unknown service %q: %w", v, ErrInvalidArgument)
	}
}

// KeyType distinguishes the credentials stored for one service.
type KeyType string

const (
	KeyTypePrivate KeyType = "private"
	KeyTypePublic  KeyType = "public"
	KeyTypeAPIKey  KeyType = "api_key"
)

// ParseKeyType validates a key type name.
func ParseKeyType(v string) (KeyType, error) {
	switch KeyType(v) {
	case KeyTypePrivate, KeyTypePublic, KeyTypeAPIKey:
		return KeyType(v), nil
	default:
		return "", fmt.Errorf("unknown key type %q: %w", v, ErrInvalidArgument)
	}
}

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusUnresolved ConversationStatus = "unresolved"
	StatusEscalated  ConversationStatus = "escalated"
	StatusResolved   ConversationStatus = "resolved"
)

// ParseConversationStatus validates a status name.
func ParseConversationStatus(v string) (ConversationStatus, error) {
	switch ConversationStatus(v) {
	case StatusUnresolved, StatusEscalated, StatusResolved:
		return ConversationStatus(v), nil
	default:
		return "", fmt.Errorf("unknown conversation status %q: %w", v, ErrInvalidArgument)
	}
}

// CanTransition reports whether a conversation may move from one status to
// another. Any status may be forced back to unresolved; a same-status
// transition is an allowed no-op.
func CanTransition(from, to ConversationStatus) bool {
	if from == to || to == StatusUnresolved {
		return true
	}
	switch from {
	case StatusUnresolved:
		return to == StatusEscalated || to == StatusResolved
	case StatusEscalated:
		return to == StatusResolved
	default:
		return false
	}
}

// MessageRole identifies the author of a thread message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ToolName is the closed set of tools the support agent may call.
type ToolName string

const (
	ToolSearch   ToolName = "search"
	ToolEscalate ToolName = "escalate"
	ToolResolve  ToolName = "resolve"
)

// AllTools lists every tool in registration order.
func AllTools() []ToolName {
	return []ToolName{ToolSearch, ToolEscalate, ToolResolve}
}
