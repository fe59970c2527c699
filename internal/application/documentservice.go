package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// DocumentService manages an organization's knowledge base. Each
// organization's documents live in a namespace named after it.
type DocumentService struct {
	index  driven.DocumentIndex
	logger *slog.Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(index driven.DocumentIndex, logger *slog.Logger) *DocumentService {
	return &DocumentService{index: index, logger: logger}
}

// Add indexes a text document for the caller's organization.
func (s *DocumentService) Add(ctx context.Context, identity *model.Identity, title, content string) (model.Document, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return model.Document{}, err
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return model.Document{}, fmt.Errorf("title and content are required: %w", model.ErrInvalidArgument)
	}

	doc, err := s.index.Add(ctx, model.Document{
		ID:        uuid.NewString(),
		Namespace: org,
		Title:     title,
		Content:   content,
	})
	if err != nil {
		return model.Document{}, err
	}

	s.logger.Info("document indexed", "organization_id", org, "document_id", doc.ID)
	return doc, nil
}

// List returns the caller's documents.
func (s *DocumentService) List(ctx context.Context, identity *model.Identity) ([]model.Document, error) {
	org, err := requireOrganization(identity)
	if err != nil {
		return nil, err
	}
	return s.index.List(ctx, org)
}

// Delete removes one of the caller's documents. Documents of other
// organizations are reported as model.ErrNotFound.
func (s *DocumentService) Delete(ctx context.Context, identity *model.Identity, id string) error {
	org, err := requireOrganization(identity)
	if err != nil {
		return err
	}
	if err := s.index.Delete(ctx, org, id); err != nil {
		return err
	}
	s.logger.Info("document removed", "organization_id", org, "document_id", id)
	return nil
}
