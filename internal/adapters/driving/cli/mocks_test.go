package cli

import (
	"context"
	"errors"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// mockRetrieval is a mock implementation of driving.RetrievalService.
type mockRetrieval struct {
	retrieval *domain.RetrievalResult
	ingest    domain.IngestResult
	stats     domain.IndexStats
	saveID    string
	err       error

	lastQuery  domain.Query
	lastIngest domain.IngestRequest
}

func (m *mockRetrieval) Ingest(_ context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	m.lastIngest = req
	return m.ingest, m.err
}

func (m *mockRetrieval) Retrieve(_ context.Context, q domain.Query) (*domain.RetrievalResult, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return m.retrieval, nil
}

func (m *mockRetrieval) AugmentPrompt(_ context.Context, systemPrompt, _ string, _ domain.Filter) (string, error) {
	return systemPrompt, m.err
}

func (m *mockRetrieval) DeleteDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockRetrieval) Save(_ context.Context) (string, error) {
	return m.saveID, m.err
}

func (m *mockRetrieval) Load(_ context.Context, _ string) error {
	return m.err
}

func (m *mockRetrieval) Stats(_ context.Context) domain.IndexStats {
	return m.stats
}

// mockDocArchive is a mock implementation of driven.DocumentArchive.
type mockDocArchive struct {
	docs []domain.Document
	doc  *domain.Document
	err  error
}

func (m *mockDocArchive) SaveDocument(_ context.Context, _ *domain.Document) error {
	return m.err
}

func (m *mockDocArchive) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

func (m *mockDocArchive) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockDocArchive) DeleteDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocArchive) Close() error { return nil }

// setupTestServices installs mocks behind the package service vars and
// returns a cleanup that restores the previous values.
func setupTestServices() func() {
	oldRetrieval := retrievalService
	oldArchive := documentArchive

	retrievalService = &mockRetrieval{
		retrieval: &domain.RetrievalResult{
			Results: []domain.SearchResult{
				{
					ChunkID:    "doc-1:0",
					DocumentID: "doc-1",
					Score:      0.42,
					Text:       "tax deduction rules for 2024",
					Metadata:   map[string]any{"source": "report.pdf"},
				},
			},
		},
		ingest: domain.IngestResult{DocumentID: "doc-1", Chunks: 3},
		stats:  domain.IndexStats{Documents: 1, Chunks: 3, Dimensions: 768, Generation: 1},
		saveID: "snap-test",
	}
	documentArchive = &mockDocArchive{}

	return func() {
		retrievalService = oldRetrieval
		documentArchive = oldArchive
	}
}

// errRetrieval fails every operation.
type errRetrieval struct {
	mockRetrieval
}

func (e *errRetrieval) Retrieve(_ context.Context, _ domain.Query) (*domain.RetrievalResult, error) {
	return nil, errors.New("index unavailable")
}
