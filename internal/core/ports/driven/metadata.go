package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MetadataStore holds chunk text plus structured tags, keyed by chunk ID,
// and evaluates filter predicates. It always changes in lockstep with the
// VectorIndex: after any completed operation the two hold identical chunk
// ID sets.
type MetadataStore interface {
	// Put stores or replaces the row for a chunk.
	Put(ctx context.Context, row MetadataRow) error

	// Get retrieves a row, or domain.ErrNotFound.
	Get(ctx context.Context, chunkID string) (MetadataRow, error)

	// Delete removes a row. Deleting an absent chunk returns
	// domain.ErrNotFound; callers treat that as a status, not a failure.
	Delete(ctx context.Context, chunkID string) error

	// Matches reports whether the chunk's metadata satisfies the filter.
	// Every criterion key must be present and equal (or, for slice
	// criteria, contain) the chunk's value; a slice metadata value
	// matches on any of its elements. Empty criteria match all.
	// An absent chunk never matches.
	Matches(ctx context.Context, chunkID string, filter domain.Filter) bool

	// ChunkIDsByDocument returns the chunk IDs owned by a document,
	// in ordinal order.
	ChunkIDsByDocument(ctx context.Context, documentID string) []string

	// DocumentIDs returns the distinct document IDs present.
	DocumentIDs(ctx context.Context) []string

	// Size returns the number of rows.
	Size() int

	// Snapshot produces a serialisable copy of all rows.
	Snapshot() MetadataSnapshot

	// Restore replaces all rows from a snapshot.
	Restore(snap MetadataSnapshot) error

	// Clone deep-copies the store for copy-on-write generations.
	Clone() MetadataStore
}

// MetadataRow is the stored form of one chunk's text and tags.
type MetadataRow struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Ordinal    int            `json:"ordinal"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// MetadataSnapshot is the serialisable state of a MetadataStore.
type MetadataSnapshot struct {
	Rows []MetadataRow `json:"rows"`
}
