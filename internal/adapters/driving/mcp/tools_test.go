package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns retrieval results", func(t *testing.T) {
		mock := &mockRetrievalService{
			retrieval: &domain.RetrievalResult{
				Results: []domain.SearchResult{
					{
						ChunkID:    "doc-1:0",
						DocumentID: "doc-1",
						Score:      0.42,
						Text:       "tax deduction rules",
						Metadata:   map[string]any{"category": "tax"},
					},
				},
				Context:     "[Document 1]\ntax deduction rules",
				ContextUsed: true,
			},
		}

		server, err := NewServer(&Ports{Retrieval: mock})
		require.NoError(t, err)

		input := RetrieveInput{Query: "tax", K: 1, MaxContextLen: 500}
		_, output, err := server.handleRetrieve(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "doc-1:0", output.Results[0].ChunkID)
		assert.Equal(t, 0.42, output.Results[0].Score)
		assert.True(t, output.ContextUsed)
		assert.Contains(t, output.Context, "tax deduction rules")
	})

	t.Run("passes filter through", func(t *testing.T) {
		mock := &mockRetrievalService{retrieval: &domain.RetrievalResult{}}
		server, err := NewServer(&Ports{Retrieval: mock})
		require.NoError(t, err)

		input := RetrieveInput{
			Query:  "tax",
			Filter: map[string]any{"category": []any{"tax", "vat"}},
		}
		_, _, err = server.handleRetrieve(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, domain.Filter{"category": []any{"tax", "vat"}}, mock.lastQuery.Filter)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		mock := &mockRetrievalService{err: errors.New("embedding unavailable")}
		server, err := NewServer(&Ports{Retrieval: mock})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "tax"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding unavailable")
	})
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests a document", func(t *testing.T) {
		mock := &mockRetrievalService{
			ingest: domain.IngestResult{DocumentID: "doc-1", Chunks: 4},
		}
		server, err := NewServer(&Ports{Retrieval: mock})
		require.NoError(t, err)

		input := IngestInput{
			DocumentID:  "doc-1",
			SourceLabel: "report.pdf",
			Text:        "some document text",
			Metadata:    map[string]any{"category": "tax"},
			Replace:     true,
		}
		_, output, err := server.handleIngest(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "doc-1", output.DocumentID)
		assert.Equal(t, 4, output.Chunks)
		assert.Equal(t, "report.pdf", mock.lastIngest.SourceLabel)
		assert.True(t, mock.lastIngest.Replace)
	})

	t.Run("returns error on duplicate", func(t *testing.T) {
		mock := &mockRetrievalService{err: domain.ErrAlreadyExists}
		server, err := NewServer(&Ports{Retrieval: mock})
		require.NoError(t, err)

		_, _, err = server.handleIngest(ctx, nil, IngestInput{DocumentID: "doc-1", Text: "x"})
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})
}
