package driving

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// RetrievalService is the top-level API of the retrieval engine:
// ingest documents, answer similarity queries under metadata filters,
// and persist or reload the index.
type RetrievalService interface {
	// Ingest chunks, embeds and indexes one document. Either all
	// chunks of the document are committed or none are.
	Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error)

	// Retrieve answers a query: embed, oversampled k-NN search,
	// metadata post-filtering, and token-bounded context assembly.
	Retrieve(ctx context.Context, q domain.Query) (*domain.RetrievalResult, error)

	// AugmentPrompt wraps a system prompt with retrieved context.
	// When nothing relevant is found the prompt is returned unchanged.
	AugmentPrompt(ctx context.Context, systemPrompt, query string, filter domain.Filter) (string, error)

	// DeleteDocument removes a document's chunks from the index.
	// Absent IDs return domain.ErrNotFound.
	DeleteDocument(ctx context.Context, documentID string) error

	// Save persists the current generation; returns the snapshot ID.
	Save(ctx context.Context) (string, error)

	// Load replaces the current generation from a snapshot.
	// An empty ID loads the latest committed snapshot.
	Load(ctx context.Context, id string) error

	// Stats reports counts for the current generation.
	Stats(ctx context.Context) domain.IndexStats
}
