package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// DocumentArchive persists ingested source documents.
// Backed by SQLite. The archive records source data, not index state;
// it lets operators list, inspect and reindex documents. The index and
// metadata store remain the authoritative retrieval structures.
type DocumentArchive interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID, or domain.ErrNotFound.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all archived documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document. Absent IDs return
	// domain.ErrNotFound.
	DeleteDocument(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
