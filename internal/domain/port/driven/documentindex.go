package driven

import (
	"context"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// DocumentIndex is a namespaced text index used by the search tool.
// Namespaces isolate one organization's knowledge base from another's.
type DocumentIndex interface {
	Add(ctx context.Context, doc model.Document) (model.Document, error)
	List(ctx context.Context, namespace string) ([]model.Document, error)

	// Delete returns model.ErrNotFound when no document with id exists in namespace.
	Delete(ctx context.Context, namespace, id string) error

	// Search returns at most limit passages ranked best first.
	Search(ctx context.Context, namespace, query string, limit int) ([]model.SearchResult, error)
}
