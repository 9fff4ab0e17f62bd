package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/ragcore/internal/chunker"
	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
	"github.com/custodia-labs/ragcore/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultK is the number of results when the query does not say.
const DefaultK = 5

// DefaultOversample is the candidate pool multiplier for post-filtering.
const DefaultOversample = 3

// DefaultContextLen is the context budget, in runes, used by
// AugmentPrompt.
const DefaultContextLen = 8000

// minCandidates is the floor for the pre-filter candidate pool, so a
// k=1 query with a filter still has something to filter.
const minCandidates = 3

// generation is one immutable index+metadata pair. Writers never mutate
// a published generation: they clone it, change the clone, and swap the
// pointer. In-flight readers keep whatever generation they loaded.
type generation struct {
	index driven.VectorIndex
	meta  driven.MetadataStore
	seq   uint64
}

// RetrievalService orchestrates ingestion and retrieval over
// copy-on-write generations.
type RetrievalService struct {
	chunker    *chunker.Chunker
	embedder   driven.EmbeddingService
	snapshots  driven.SnapshotStore
	archive    driven.DocumentArchive
	oversample int
	defaultK   int
	contextLen int

	mu  sync.Mutex // serialises writers; readers go through gen only
	gen atomic.Pointer[generation]
}

// RetrievalOption configures the service.
type RetrievalOption func(*RetrievalService)

// WithSnapshotStore enables Save/Load through the given store.
func WithSnapshotStore(store driven.SnapshotStore) RetrievalOption {
	return func(s *RetrievalService) { s.snapshots = store }
}

// WithArchive records ingested source documents in the given archive.
func WithArchive(archive driven.DocumentArchive) RetrievalOption {
	return func(s *RetrievalService) { s.archive = archive }
}

// WithOversample sets the candidate pool multiplier.
func WithOversample(n int) RetrievalOption {
	return func(s *RetrievalService) {
		if n >= 1 {
			s.oversample = n
		}
	}
}

// WithDefaultK sets the result count used when a query leaves K unset.
func WithDefaultK(k int) RetrievalOption {
	return func(s *RetrievalService) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// WithDefaultContextLen sets the context budget AugmentPrompt uses.
func WithDefaultContextLen(n int) RetrievalOption {
	return func(s *RetrievalService) {
		if n > 0 {
			s.contextLen = n
		}
	}
}

// NewRetrievalService creates the orchestrator over an initial (usually
// empty) index and metadata store. The embedder may be nil; ingestion
// and retrieval then fail with domain.ErrEmbeddingUnavailable.
func NewRetrievalService(
	ch *chunker.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	meta driven.MetadataStore,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		chunker:    ch,
		embedder:   embedder,
		oversample: DefaultOversample,
		defaultK:   DefaultK,
		contextLen: DefaultContextLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gen.Store(&generation{index: index, meta: meta, seq: 0})
	return s
}

// current returns the generation readers should use.
func (s *RetrievalService) current() *generation {
	return s.gen.Load()
}

// Ingest chunks, embeds and indexes one document. All mutation happens
// on a private clone of the current generation; any failure discards
// the clone, so a half-ingested document is never observable.
func (s *RetrievalService) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	logger.Section("Document Ingestion")

	if strings.TrimSpace(req.DocumentID) == "" {
		return domain.IngestResult{}, fmt.Errorf("document ID: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Text) == "" {
		return domain.IngestResult{}, fmt.Errorf("document text: %w", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return domain.IngestResult{}, domain.ErrEmbeddingUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current()
	existing := cur.meta.ChunkIDsByDocument(ctx, req.DocumentID)
	if len(existing) > 0 && !req.Replace {
		logger.Debug("Document %s already indexed (%d chunks)", req.DocumentID, len(existing))
		return domain.IngestResult{}, fmt.Errorf("document %s: %w", req.DocumentID, domain.ErrAlreadyExists)
	}

	texts := s.chunker.Chunk(req.Text)
	if len(texts) == 0 {
		return domain.IngestResult{}, fmt.Errorf("document text: %w", domain.ErrInvalidInput)
	}
	logger.Debug("Document %s: %d chunks", req.DocumentID, len(texts))

	// Embed before touching anything; a provider failure costs nothing.
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("Ingest %s: embedding failed: %v", req.DocumentID, err)
		return domain.IngestResult{}, fmt.Errorf("embed document %s: %w", req.DocumentID, err)
	}

	next := &generation{
		index: cur.index.Clone(),
		meta:  cur.meta.Clone(),
		seq:   cur.seq + 1,
	}

	if req.Replace {
		for _, chunkID := range existing {
			next.index.Remove(ctx, chunkID)
			if err := next.meta.Delete(ctx, chunkID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return domain.IngestResult{}, fmt.Errorf("replace document %s: %w", req.DocumentID, err)
			}
		}
		logger.Debug("Replaced %d prior chunks of %s", len(existing), req.DocumentID)
	}

	for i, text := range texts {
		c := domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", req.DocumentID, i),
			DocumentID: req.DocumentID,
			Text:       text,
			Ordinal:    i,
			Embedding:  vectors[i],
			Metadata:   req.Metadata,
		}
		if err := next.index.Add(ctx, c.ID, c.Embedding, false); err != nil {
			logger.Warn("Ingest %s: indexing chunk %s failed: %v", req.DocumentID, c.ID, err)
			return domain.IngestResult{}, fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
		row := driven.MetadataRow{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Ordinal:    c.Ordinal,
			Text:       c.Text,
			Metadata:   c.Metadata,
		}
		if err := next.meta.Put(ctx, row); err != nil {
			return domain.IngestResult{}, fmt.Errorf("store chunk %s: %w", c.ID, err)
		}
	}

	// Archive the source document before publishing the generation, so
	// anything the index serves can also be listed and reindexed.
	if s.archive != nil {
		doc := &domain.Document{
			ID:          req.DocumentID,
			SourceLabel: req.SourceLabel,
			Text:        req.Text,
			Metadata:    req.Metadata,
			ChunkCount:  len(texts),
		}
		if err := s.archive.SaveDocument(ctx, doc); err != nil {
			logger.Warn("Ingest %s: archiving failed: %v", req.DocumentID, err)
			return domain.IngestResult{}, fmt.Errorf("archive document %s: %w", req.DocumentID, err)
		}
	}

	s.gen.Store(next)
	logger.Info("Ingested %s: %d chunks (generation %d)", req.DocumentID, len(texts), next.seq)

	return domain.IngestResult{DocumentID: req.DocumentID, Chunks: len(texts)}, nil
}

// Retrieve embeds the query, searches an oversampled candidate pool,
// post-filters by metadata in ascending-distance order, and assembles
// the context block.
func (s *RetrievalService) Retrieve(ctx context.Context, q domain.Query) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")

	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("query text: %w", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	k := q.K
	if k <= 0 {
		k = s.defaultK
	}

	gen := s.current()
	logger.Debug("Query %q: k=%d, filter=%v, generation=%d", q.Text, k, q.Filter, gen.seq)

	if gen.index.Size() == 0 {
		logger.Debug("Index empty, nothing to retrieve")
		return &domain.RetrievalResult{Results: []domain.SearchResult{}}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates := k * s.oversample
	if candidates < minCandidates {
		candidates = minCandidates
	}

	hits, err := gen.index.Search(ctx, queryVec, candidates)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Candidate pool: %d of %d requested", len(hits), candidates)

	results := make([]domain.SearchResult, 0, k)
	for _, hit := range hits {
		if len(results) == k {
			break
		}
		if !gen.meta.Matches(ctx, hit.ChunkID, q.Filter) {
			continue
		}
		row, err := gen.meta.Get(ctx, hit.ChunkID)
		if err != nil {
			// Lockstep invariant: a hit must have a row.
			return nil, fmt.Errorf("hydrate chunk %s: %w", hit.ChunkID, err)
		}
		results = append(results, domain.SearchResult{
			ChunkID:    hit.ChunkID,
			DocumentID: row.DocumentID,
			Score:      hit.Distance,
			Text:       row.Text,
			Metadata:   row.Metadata,
		})
	}
	logger.Info("Retrieved %d of %d requested results", len(results), k)

	res := &domain.RetrievalResult{Results: results}
	if q.MaxContextLen > 0 {
		res.Context, res.ContextUsed = assembleContext(results, q.MaxContextLen)
		logger.Debug("Context: %d runes of %d budget, used=%t",
			len([]rune(res.Context)), q.MaxContextLen, res.ContextUsed)
	}
	return res, nil
}

// AugmentPrompt retrieves context for the query and wraps the system
// prompt with it. When nothing relevant is found the prompt comes back
// unchanged.
func (s *RetrievalService) AugmentPrompt(ctx context.Context, systemPrompt, query string, filter domain.Filter) (string, error) {
	res, err := s.Retrieve(ctx, domain.Query{
		Text:          query,
		Filter:        filter,
		K:             s.defaultK,
		MaxContextLen: s.contextLen,
	})
	if err != nil {
		return "", err
	}
	if !res.ContextUsed {
		logger.Debug("No context found, prompt unchanged")
		return systemPrompt, nil
	}
	return augmentPrompt(systemPrompt, res.Context), nil
}

// DeleteDocument removes all chunks of a document from the index and
// metadata store, and drops it from the archive.
func (s *RetrievalService) DeleteDocument(ctx context.Context, documentID string) error {
	logger.Section("Document Deletion")

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current()
	chunkIDs := cur.meta.ChunkIDsByDocument(ctx, documentID)
	if len(chunkIDs) == 0 {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	next := &generation{
		index: cur.index.Clone(),
		meta:  cur.meta.Clone(),
		seq:   cur.seq + 1,
	}
	for _, chunkID := range chunkIDs {
		next.index.Remove(ctx, chunkID)
		if err := next.meta.Delete(ctx, chunkID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete chunk %s: %w", chunkID, err)
		}
	}

	if s.archive != nil {
		if err := s.archive.DeleteDocument(ctx, documentID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("unarchive document %s: %w", documentID, err)
		}
	}

	s.gen.Store(next)
	logger.Info("Deleted %s: %d chunks (generation %d)", documentID, len(chunkIDs), next.seq)
	return nil
}

// Save persists the current generation through the snapshot store.
func (s *RetrievalService) Save(ctx context.Context) (string, error) {
	if s.snapshots == nil {
		return "", &domain.ConfigurationError{Field: "snapshots", Reason: "no snapshot store configured"}
	}

	// Generations are immutable once published, so snapshotting does
	// not need the writer lock.
	gen := s.current()
	id, err := s.snapshots.Save(ctx, gen.index.Snapshot(), gen.meta.Snapshot())
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	logger.Info("Saved generation %d as snapshot %s", gen.seq, id)
	return id, nil
}

// Load replaces the current generation from a snapshot. An empty ID
// loads the latest committed snapshot.
func (s *RetrievalService) Load(ctx context.Context, id string) error {
	if s.snapshots == nil {
		return &domain.ConfigurationError{Field: "snapshots", Reason: "no snapshot store configured"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		latest, err := s.snapshots.Latest(ctx)
		if err != nil {
			return fmt.Errorf("resolve latest snapshot: %w", err)
		}
		id = latest
	}

	indexSnap, metaSnap, err := s.snapshots.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", id, err)
	}

	cur := s.current()
	next := &generation{
		index: cur.index.Clone(),
		meta:  cur.meta.Clone(),
		seq:   cur.seq + 1,
	}
	if err := next.index.Restore(indexSnap); err != nil {
		return fmt.Errorf("restore index: %w", err)
	}
	if err := next.meta.Restore(metaSnap); err != nil {
		return fmt.Errorf("restore metadata: %w", err)
	}

	s.gen.Store(next)
	logger.Info("Loaded snapshot %s: %d chunks (generation %d)", id, next.meta.Size(), next.seq)
	return nil
}

// Stats reports counts for the current generation.
func (s *RetrievalService) Stats(ctx context.Context) domain.IndexStats {
	gen := s.current()
	return domain.IndexStats{
		Documents:  len(gen.meta.DocumentIDs(ctx)),
		Chunks:     gen.meta.Size(),
		Dimensions: gen.index.Dimensions(),
		Generation: gen.seq,
	}
}
