package model

import "time"

// Conversation binds a contact session to a message thread. Status changes
// go through the state machine; Version guards compare-and-swap updates.
type Conversation struct {
	ID               string
	OrganizationID   string
	ThreadID         string
	ContactSessionID string
	Status           ConversationStatus
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ContactSession is the widget visitor a conversation belongs to.
type ContactSession struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	Metadata       map[string]string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s ContactSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
