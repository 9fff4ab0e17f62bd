package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragcore/internal/adapters/driven/index/flat"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/metadata/memory"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/snapshot"
	"github.com/custodia-labs/ragcore/internal/chunker"
	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// stubEmbedder returns canned vectors keyed by exact text. Unknown
// texts get the zero vector, which makes it the nearest neighbour of
// an unknown query.
type stubEmbedder struct {
	mu       sync.Mutex
	dim      int
	vectors  map[string][]float32
	failNext bool
	calls    int
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failNext {
		e.failNext = false
		return nil, &domain.EmbeddingError{Embedded: 0, Err: errors.New("provider down")}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := e.vectors[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = make([]float32, e.dim)
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int              { return e.dim }
func (e *stubEmbedder) ModelName() string            { return "stub" }
func (e *stubEmbedder) Ping(_ context.Context) error { return nil }
func (e *stubEmbedder) Close() error                 { return nil }

// newTestService builds a service over a fresh index, metadata store
// and the given embedder. Chunk window is large enough that every test
// document is a single chunk.
func newTestService(t *testing.T, embedder *stubEmbedder, opts ...RetrievalOption) *RetrievalService {
	t.Helper()

	ch, err := chunker.New(200, 40)
	require.NoError(t, err)

	index, err := flat.New(embedder.dim)
	require.NoError(t, err)

	return NewRetrievalService(ch, embedder, index, memory.NewStore(), opts...)
}

// taxEmbedder sets up three single-chunk documents at increasing
// distance from the "tax" query: the nearest is category cash, the two
// farther ones are category tax.
func taxEmbedder() *stubEmbedder {
	return &stubEmbedder{
		dim: 2,
		vectors: map[string][]float32{
			"cash flow statement overview":   {1, 0},
			"tax deduction rules for 2024":   {2, 0},
			"income tax filing deadlines":    {3, 0},
			"what are the tax rules?":        {0, 0},
			"completely unrelated gardening": {50, 0},
		},
	}
}

func ingestTaxDocs(t *testing.T, svc *RetrievalService) {
	t.Helper()

	docs := []domain.IngestRequest{
		{DocumentID: "alpha", Text: "cash flow statement overview",
			Metadata: map[string]any{"category": "cash", "source": "alpha.txt"}},
		{DocumentID: "bravo", Text: "tax deduction rules for 2024",
			Metadata: map[string]any{"category": "tax", "source": "bravo.txt", "date": "2024-03-01"}},
		{DocumentID: "charlie", Text: "income tax filing deadlines",
			Metadata: map[string]any{"category": "tax"}},
	}
	for _, req := range docs {
		_, err := svc.Ingest(context.Background(), req)
		require.NoError(t, err)
	}
}

func TestIngestAndRetrieve(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())
	ingestTaxDocs(t, svc)

	res, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 3})
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	// Ascending by distance.
	assert.Equal(t, "alpha:0", res.Results[0].ChunkID)
	assert.Equal(t, "bravo:0", res.Results[1].ChunkID)
	assert.Equal(t, "charlie:0", res.Results[2].ChunkID)
	assert.Less(t, res.Results[0].Score, res.Results[1].Score)
	assert.Equal(t, "bravo", res.Results[1].DocumentID)
	assert.Equal(t, "tax deduction rules for 2024", res.Results[1].Text)
}

func TestRetrieve_OversampleThenFilter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())
	ingestTaxDocs(t, svc)

	// k=2 with the filter: the nearest chunk is category cash and must
	// be skipped; the oversampled pool still yields both tax chunks.
	res, err := svc.Retrieve(ctx, domain.Query{
		Text:   "what are the tax rules?",
		K:      2,
		Filter: domain.Filter{"category": "tax"},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "bravo:0", res.Results[0].ChunkID)
	assert.Equal(t, "charlie:0", res.Results[1].ChunkID)
}

func TestRetrieve_UnderKIsNormal(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())
	ingestTaxDocs(t, svc)

	res, err := svc.Retrieve(ctx, domain.Query{
		Text:   "what are the tax rules?",
		K:      5,
		Filter: domain.Filter{"category": "tax"},
	})
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)
}

func TestRetrieve_UnsatisfiableFilter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())
	ingestTaxDocs(t, svc)

	res, err := svc.Retrieve(ctx, domain.Query{
		Text:          "what are the tax rules?",
		K:             2,
		Filter:        domain.Filter{"category": "insurance"},
		MaxContextLen: 1000,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Empty(t, res.Context)
	assert.False(t, res.ContextUsed)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())

	res, err := svc.Retrieve(ctx, domain.Query{Text: "anything", K: 3})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	svc := newTestService(t, taxEmbedder())
	_, err := svc.Retrieve(context.Background(), domain.Query{Text: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieve_ContextBudget(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())
	ingestTaxDocs(t, svc)

	full, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 3, MaxContextLen: 4000})
	require.NoError(t, err)
	require.True(t, full.ContextUsed)
	assert.Contains(t, full.Context, "[Document 1] (Source: alpha.txt)")
	assert.Contains(t, full.Context, "[Document 2] (Source: bravo.txt, 2024-03-01)")
	assert.Contains(t, full.Context, "cash flow statement overview")

	// A budget that only fits the first block: assembly stops there,
	// texts are never truncated.
	firstBlockLen := utf8.RuneCountInString("[Document 1] (Source: alpha.txt)\ncash flow statement overview")
	tight, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 3, MaxContextLen: firstBlockLen + 5})
	require.NoError(t, err)
	assert.True(t, tight.ContextUsed)
	assert.LessOrEqual(t, utf8.RuneCountInString(tight.Context), firstBlockLen+5)
	assert.Contains(t, tight.Context, "cash flow statement overview")
	assert.NotContains(t, tight.Context, "tax deduction")

	// Zero budget disables context assembly entirely.
	none, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 3})
	require.NoError(t, err)
	assert.Empty(t, none.Context)
	assert.False(t, none.ContextUsed)
}

func TestRetrieve_ListMetadataFilter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())

	// Multi-valued tags, as produced by ingest --meta category=tax,finance.
	_, err := svc.Ingest(ctx, domain.IngestRequest{
		DocumentID: "alpha",
		Text:       "cash flow statement overview",
		Metadata:   map[string]any{"category": []any{"tax", "finance"}},
	})
	require.NoError(t, err)

	scalar, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 5, Filter: domain.Filter{"category": "tax"}})
	require.NoError(t, err)
	require.Len(t, scalar.Results, 1)

	list, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 5, Filter: domain.Filter{"category": []any{"finance", "audit"}}})
	require.NoError(t, err)
	require.Len(t, list.Results, 1)

	miss, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 5, Filter: domain.Filter{"category": "cash"}})
	require.NoError(t, err)
	assert.Empty(t, miss.Results)
}

func TestIngest_DuplicateRequiresReplace(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())
	ingestTaxDocs(t, svc)

	_, err := svc.Ingest(ctx, domain.IngestRequest{
		DocumentID: "bravo",
		Text:       "completely unrelated gardening",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// Replace swaps the content atomically.
	res, err := svc.Ingest(ctx, domain.IngestRequest{
		DocumentID: "bravo",
		Text:       "completely unrelated gardening",
		Metadata:   map[string]any{"category": "garden"},
		Replace:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)

	got, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 5})
	require.NoError(t, err)
	for _, r := range got.Results {
		if r.DocumentID == "bravo" {
			assert.Equal(t, "completely unrelated gardening", r.Text)
			assert.Equal(t, "garden", r.Metadata["category"])
		}
	}
}

func TestIngest_InvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())

	_, err := svc.Ingest(ctx, domain.IngestRequest{DocumentID: "", Text: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Ingest(ctx, domain.IngestRequest{DocumentID: "d", Text: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngest_RollbackOnEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	embedder := taxEmbedder()
	svc := newTestService(t, embedder)
	ingestTaxDocs(t, svc)

	before := svc.Stats(ctx)

	embedder.failNext = true
	_, err := svc.Ingest(ctx, domain.IngestRequest{DocumentID: "delta", Text: "doomed document"})
	var embErr *domain.EmbeddingError
	require.ErrorAs(t, err, &embErr)

	// Nothing changed: same counts, same generation.
	after := svc.Stats(ctx)
	assert.Equal(t, before, after)

	// A failed replace leaves the old content retrievable.
	embedder.failNext = true
	_, err = svc.Ingest(ctx, domain.IngestRequest{
		DocumentID: "bravo", Text: "doomed document", Replace: true,
	})
	require.Error(t, err)

	res, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 5})
	require.NoError(t, err)
	texts := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		texts = append(texts, r.Text)
	}
	assert.Contains(t, texts, "tax deduction rules for 2024")
}

func TestIngest_NoEmbedder(t *testing.T) {
	ch, err := chunker.New(200, 40)
	require.NoError(t, err)
	index, err := flat.New(2)
	require.NoError(t, err)
	svc := NewRetrievalService(ch, nil, index, memory.NewStore())

	_, err = svc.Ingest(context.Background(), domain.IngestRequest{DocumentID: "d", Text: "text"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = svc.Retrieve(context.Background(), domain.Query{Text: "q"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())
	ingestTaxDocs(t, svc)

	assert.ErrorIs(t, svc.DeleteDocument(ctx, "missing"), domain.ErrNotFound)

	require.NoError(t, svc.DeleteDocument(ctx, "bravo"))

	res, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 5})
	require.NoError(t, err)
	for _, r := range res.Results {
		assert.NotEqual(t, "bravo", r.DocumentID)
	}

	stats := svc.Stats(ctx)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2, stats.Chunks)
}

func TestAugmentPrompt(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, taxEmbedder())
	ingestTaxDocs(t, svc)

	system := "You are a helpful financial assistant."

	prompt, err := svc.AugmentPrompt(ctx, system, "what are the tax rules?", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, system))
	assert.Contains(t, prompt, "tax deduction rules for 2024")

	// Nothing relevant: the prompt comes back unchanged.
	unchanged, err := svc.AugmentPrompt(ctx, system, "what are the tax rules?",
		domain.Filter{"category": "insurance"})
	require.NoError(t, err)
	assert.Equal(t, system, unchanged)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := snapshot.NewStore(t.TempDir())
	require.NoError(t, err)

	embedder := taxEmbedder()
	svc := newTestService(t, embedder, WithSnapshotStore(store))
	ingestTaxDocs(t, svc)

	id, err := svc.Save(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// A second service restores the exact same retrieval behaviour.
	restored := newTestService(t, embedder, WithSnapshotStore(store))
	require.NoError(t, restored.Load(ctx, ""))

	res, err := restored.Retrieve(ctx, domain.Query{
		Text:   "what are the tax rules?",
		K:      2,
		Filter: domain.Filter{"category": "tax"},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "bravo:0", res.Results[0].ChunkID)

	stats := restored.Stats(ctx)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 3, stats.Chunks)
}

func TestSaveLoad_NoStoreConfigured(t *testing.T) {
	svc := newTestService(t, taxEmbedder())

	_, err := svc.Save(context.Background())
	var cerr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cerr)

	err = svc.Load(context.Background(), "some-id")
	assert.ErrorAs(t, err, &cerr)
}

// fakeArchive records archive calls for assertion.
type fakeArchive struct {
	mu      sync.Mutex
	saved   map[string]domain.Document
	failing bool
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{saved: make(map[string]domain.Document)}
}

func (a *fakeArchive) SaveDocument(_ context.Context, doc *domain.Document) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failing {
		return errors.New("disk full")
	}
	a.saved[doc.ID] = *doc
	return nil
}

func (a *fakeArchive) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	doc, ok := a.saved[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (a *fakeArchive) ListDocuments(_ context.Context) ([]domain.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	docs := make([]domain.Document, 0, len(a.saved))
	for _, doc := range a.saved {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (a *fakeArchive) DeleteDocument(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.saved[id]; !ok {
		return domain.ErrNotFound
	}
	delete(a.saved, id)
	return nil
}

func (a *fakeArchive) Close() error { return nil }

func TestIngest_ArchivesSourceDocument(t *testing.T) {
	ctx := context.Background()
	archive := newFakeArchive()
	svc := newTestService(t, taxEmbedder(), WithArchive(archive))
	ingestTaxDocs(t, svc)

	doc, err := archive.GetDocument(ctx, "bravo")
	require.NoError(t, err)
	assert.Equal(t, "tax deduction rules for 2024", doc.Text)
	assert.Equal(t, 1, doc.ChunkCount)

	require.NoError(t, svc.DeleteDocument(ctx, "bravo"))
	_, err = archive.GetDocument(ctx, "bravo")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_ArchiveFailureAbortsCommit(t *testing.T) {
	ctx := context.Background()
	archive := newFakeArchive()
	archive.failing = true
	svc := newTestService(t, taxEmbedder(), WithArchive(archive))

	_, err := svc.Ingest(ctx, domain.IngestRequest{
		DocumentID: "alpha",
		Text:       "cash flow statement overview",
	})
	require.Error(t, err)

	stats := svc.Stats(ctx)
	assert.Equal(t, 0, stats.Chunks)
}

func TestConcurrentRetrieveDuringIngest(t *testing.T) {
	ctx := context.Background()
	embedder := taxEmbedder()
	svc := newTestService(t, embedder)
	ingestTaxDocs(t, svc)

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Readers hammer the service while a writer replaces documents.
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				res, err := svc.Retrieve(ctx, domain.Query{Text: "what are the tax rules?", K: 3})
				if err != nil {
					t.Errorf("retrieve: %v", err)
					return
				}
				// A generation is internally consistent: every result
				// hydrates.
				for _, r := range res.Results {
					if r.Text == "" {
						t.Error("result with empty text: torn generation")
						return
					}
				}
			}
		}()
	}

	for i := range 50 {
		replace := i > 0
		_, err := svc.Ingest(ctx, domain.IngestRequest{
			DocumentID: "spinner",
			Text:       "completely unrelated gardening",
			Replace:    replace,
		})
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()

	stats := svc.Stats(ctx)
	assert.Equal(t, 4, stats.Documents)
}
