package model

import "time"

// Document is a knowledge-base entry indexed for search under the owning
// organization's namespace.
type Document struct {
	ID        string
	Namespace string
	Title     string
	Content   string
	CreatedAt time.Time
}

// SearchResult is one ranked passage returned by the document index.
type SearchResult struct {
	DocumentID string
	Title      string
	Text       string
	Score      float64
}
