package model

import "time"

// Message is one entry in an append-only thread log.
type Message struct {
	ID        int64
	ThreadID  string
	Role      MessageRole
	AgentName string // Operator display name for operator-authored assistant messages.
	Content   string
	CreatedAt time.Time
}

// MessagePage is one page of a thread, oldest first. NextCursor is zero when
// there are no further pages.
type MessagePage struct {
	Messages   []Message
	NextCursor int64
}
