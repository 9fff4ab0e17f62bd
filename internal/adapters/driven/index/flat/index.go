// Package flat provides an exhaustive in-memory vector index.
//
// Every query scans all entries, so results are exact: ascending by
// squared Euclidean distance, ties broken by ascending chunk ID. This
// is the correctness baseline the retrieval orchestrator's oversample-
// then-filter design depends on; an approximate index may replace it
// behind the same port only with a documented recall tolerance.
package flat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a flat, exhaustively scanned vector index.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	vectors    map[string][]float32
}

// New creates an empty index with a fixed embedding dimension.
func New(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, &domain.ConfigurationError{Field: "dimensions", Reason: "must be positive"}
	}
	return &Index{
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
	}, nil
}

// Add inserts a vector for the given chunk ID.
func (idx *Index) Add(_ context.Context, chunkID string, embedding []float32, replace bool) error {
	if len(embedding) != idx.dimensions {
		return &domain.DimensionError{ChunkID: chunkID, Want: idx.dimensions, Got: len(embedding)}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.vectors[chunkID]; exists && !replace {
		return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrAlreadyExists)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	idx.vectors[chunkID] = vec
	return nil
}

// Remove deletes a vector and reports whether it was present.
func (idx *Index) Remove(_ context.Context, chunkID string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.vectors[chunkID]; !exists {
		return false
	}
	delete(idx.vectors, chunkID)
	return true
}

// Search finds the k nearest neighbours to the query vector.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimensions {
		return nil, &domain.DimensionError{Want: idx.dimensions, Got: len(query)}
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		hits = append(hits, driven.VectorHit{ChunkID: id, Distance: squaredL2(vec, query)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Size returns the number of indexed vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dimensions returns the fixed embedding dimension.
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// Snapshot produces a serialisable copy of all entries, ordered by
// chunk ID for deterministic output.
func (idx *Index) Snapshot() driven.IndexSnapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := make([]driven.IndexEntry, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		entries = append(entries, driven.IndexEntry{ChunkID: id, Embedding: cp})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ChunkID < entries[j].ChunkID })

	return driven.IndexSnapshot{Dimensions: idx.dimensions, Entries: entries}
}

// Restore replaces all entries from a snapshot.
func (idx *Index) Restore(snap driven.IndexSnapshot) error {
	if snap.Dimensions <= 0 {
		return &domain.ConfigurationError{Field: "dimensions", Reason: "must be positive"}
	}
	vectors := make(map[string][]float32, len(snap.Entries))
	for _, e := range snap.Entries {
		if len(e.Embedding) != snap.Dimensions {
			return &domain.DimensionError{ChunkID: e.ChunkID, Want: snap.Dimensions, Got: len(e.Embedding)}
		}
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		vectors[e.ChunkID] = vec
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.dimensions = snap.Dimensions
	idx.vectors = vectors
	return nil
}

// Clone deep-copies the index for copy-on-write generations.
func (idx *Index) Clone() driven.VectorIndex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	vectors := make(map[string][]float32, len(idx.vectors))
	for id, vec := range idx.vectors {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		vectors[id] = cp
	}
	return &Index{dimensions: idx.dimensions, vectors: vectors}
}

// squaredL2 computes the squared Euclidean distance between two vectors
// of equal length. Monotonic with Euclidean distance and cheaper.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
