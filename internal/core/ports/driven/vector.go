package driven

import "context"

// VectorIndex stores chunk embeddings and answers k-nearest-neighbour
// queries. Operations are in-memory and non-blocking; the context is
// accepted for interface symmetry with future out-of-process adapters.
//
// Ordering contract: Search results are ascending by distance, ties
// broken by ascending chunk ID. An approximate implementation may be
// substituted only if it preserves this contract within a documented
// recall tolerance.
type VectorIndex interface {
	// Add inserts a vector for the given chunk ID. It rejects a
	// dimension mismatch with *domain.DimensionError and a duplicate
	// chunk ID with domain.ErrAlreadyExists unless replace is set.
	Add(ctx context.Context, chunkID string, embedding []float32, replace bool) error

	// Remove deletes a vector. It reports whether the chunk was
	// present; removing an absent chunk is not an error.
	Remove(ctx context.Context, chunkID string) bool

	// Search finds the k nearest neighbours to the query vector.
	// k larger than the index size returns all entries.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Size returns the number of indexed vectors.
	Size() int

	// Dimensions returns the fixed embedding dimension.
	Dimensions() int

	// Snapshot produces a serialisable representation sufficient to
	// reconstruct exact search behaviour.
	Snapshot() IndexSnapshot

	// Restore replaces all entries from a snapshot.
	Restore(snap IndexSnapshot) error

	// Clone deep-copies the index for copy-on-write generations.
	Clone() VectorIndex
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Distance is the squared Euclidean distance (lower = more similar).
	Distance float64
}

// IndexSnapshot is the serialisable state of a VectorIndex.
type IndexSnapshot struct {
	Dimensions int          `json:"dimensions"`
	Entries    []IndexEntry `json:"entries"`
}

// IndexEntry is one (chunk ID, embedding) pair.
type IndexEntry struct {
	ChunkID   string    `json:"chunk_id"`
	Embedding []float32 `json:"embedding"`
}
