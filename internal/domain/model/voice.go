package model

import "time"

// PhoneNumber is a number provisioned on the voice provider.
type PhoneNumber struct {
	ID          string
	Number      string
	Name        string
	Status      string
	Provider    string
	AssistantID string
	CreatedAt   time.Time
}

// Assistant is a voice assistant configured on the voice provider.
type Assistant struct {
	ID           string
	Name         string
	FirstMessage string
	Model        string
	CreatedAt    time.Time
}
