package domain

import "time"

// Document represents a source document handed to the retrieval core.
// The extractor upstream is responsible for producing plain text;
// the core never sees raw file bytes.
type Document struct {
	// ID is the stable, caller-supplied identifier.
	ID string

	// SourceLabel is a human-readable origin (file name, upload label).
	SourceLabel string

	// Text is the full plain-text content before chunking.
	Text string

	// Metadata contains key-value pairs inherited by every chunk
	// (category, date, author, ...). Values are scalars or lists of
	// scalars; a list value matches a filter on any of its elements.
	Metadata map[string]any

	// ChunkCount is the number of chunks produced at ingestion.
	ChunkCount int

	// IngestedAt is when the document was last (re-)ingested.
	IngestedAt time.Time
}

// Chunk is the unit of embedding and retrieval: a contiguous window of a
// document's text. Chunks are created once at ingestion and replaced
// wholesale on re-ingestion, never mutated in place.
type Chunk struct {
	// ID is unique within an index generation, derived from the
	// document ID and the chunk ordinal.
	ID string

	// DocumentID links back to the owning Document.
	DocumentID string

	// Text is the chunk's text content.
	Text string

	// Ordinal is the position within the document.
	Ordinal int

	// Embedding is the fixed-dimension vector representation.
	Embedding []float32

	// Metadata contains chunk-level key-value pairs.
	Metadata map[string]any
}
