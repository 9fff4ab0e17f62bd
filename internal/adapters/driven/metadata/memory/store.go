// Package memory provides an in-memory metadata store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.MetadataStore = (*Store)(nil)

// Store is an in-memory implementation of driven.MetadataStore.
type Store struct {
	mu   sync.RWMutex
	rows map[string]driven.MetadataRow
}

// NewStore creates an empty in-memory metadata store.
func NewStore() *Store {
	return &Store{rows: make(map[string]driven.MetadataRow)}
}

// Put stores or replaces the row for a chunk.
func (s *Store) Put(_ context.Context, row driven.MetadataRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.ChunkID] = copyRow(row)
	return nil
}

// Get retrieves a row, or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, chunkID string) (driven.MetadataRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[chunkID]
	if !ok {
		return driven.MetadataRow{}, domain.ErrNotFound
	}
	return copyRow(row), nil
}

// Delete removes a row, or reports domain.ErrNotFound.
func (s *Store) Delete(_ context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[chunkID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rows, chunkID)
	return nil
}

// Matches reports whether the chunk's metadata satisfies the filter.
// An absent chunk never matches.
func (s *Store) Matches(_ context.Context, chunkID string, filter domain.Filter) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[chunkID]
	if !ok {
		return false
	}
	return filter.Matches(row.Metadata)
}

// ChunkIDsByDocument returns the chunk IDs owned by a document, in
// ordinal order.
func (s *Store) ChunkIDsByDocument(_ context.Context, documentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type ordered struct {
		id      string
		ordinal int
	}
	var found []ordered
	for id, row := range s.rows {
		if row.DocumentID == documentID {
			found = append(found, ordered{id, row.Ordinal})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ordinal < found[j].ordinal })

	ids := make([]string, len(found))
	for i, f := range found {
		ids[i] = f.id
	}
	return ids
}

// DocumentIDs returns the distinct document IDs present, sorted.
func (s *Store) DocumentIDs(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, row := range s.rows {
		seen[row.DocumentID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Size returns the number of rows.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Snapshot produces a serialisable copy of all rows, ordered by chunk
// ID for deterministic output.
func (s *Store) Snapshot() driven.MetadataSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]driven.MetadataRow, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, copyRow(row))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ChunkID < rows[j].ChunkID })
	return driven.MetadataSnapshot{Rows: rows}
}

// Restore replaces all rows from a snapshot.
func (s *Store) Restore(snap driven.MetadataSnapshot) error {
	rows := make(map[string]driven.MetadataRow, len(snap.Rows))
	for _, row := range snap.Rows {
		rows[row.ChunkID] = copyRow(row)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	return nil
}

// Clone deep-copies the store for copy-on-write generations.
func (s *Store) Clone() driven.MetadataStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make(map[string]driven.MetadataRow, len(s.rows))
	for id, row := range s.rows {
		rows[id] = copyRow(row)
	}
	return &Store{rows: rows}
}

func copyRow(row driven.MetadataRow) driven.MetadataRow {
	if row.Metadata == nil {
		return row
	}
	meta := make(map[string]any, len(row.Metadata))
	for k, v := range row.Metadata {
		meta[k] = v
	}
	row.Metadata = meta
	return row
}
