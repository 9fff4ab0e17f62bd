package mcp

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	retrieval *domain.RetrievalResult
	ingest    domain.IngestResult
	stats     domain.IndexStats
	prompt    string
	saveID    string
	err       error

	lastQuery  domain.Query
	lastIngest domain.IngestRequest
}

func (m *mockRetrievalService) Ingest(_ context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	m.lastIngest = req
	return m.ingest, m.err
}

func (m *mockRetrievalService) Retrieve(_ context.Context, q domain.Query) (*domain.RetrievalResult, error) {
	m.lastQuery = q
	return m.retrieval, m.err
}

func (m *mockRetrievalService) AugmentPrompt(_ context.Context, systemPrompt, _ string, _ domain.Filter) (string, error) {
	if m.prompt != "" {
		return m.prompt, m.err
	}
	return systemPrompt, m.err
}

func (m *mockRetrievalService) DeleteDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockRetrievalService) Save(_ context.Context) (string, error) {
	return m.saveID, m.err
}

func (m *mockRetrievalService) Load(_ context.Context, _ string) error {
	return m.err
}

func (m *mockRetrievalService) Stats(_ context.Context) domain.IndexStats {
	return m.stats
}

// mockArchive is a mock implementation of driven.DocumentArchive.
type mockArchive struct {
	docs []domain.Document
	doc  *domain.Document
	err  error
}

func (m *mockArchive) SaveDocument(_ context.Context, _ *domain.Document) error {
	return m.err
}

func (m *mockArchive) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	return m.doc, m.err
}

func (m *mockArchive) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockArchive) DeleteDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockArchive) Close() error { return nil }
