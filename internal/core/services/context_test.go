package services

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

func TestAssembleContext_StopsAtFirstOversizedBlock(t *testing.T) {
	results := []domain.SearchResult{
		{Text: "a rather long first chunk that dominates the budget"},
		{Text: "tiny"},
	}

	firstBlock := formatBlock(1, results[0])
	budget := utf8.RuneCountInString(firstBlock) + 3

	context, used := assembleContext(results, budget)

	// The second block does not fit after the first; assembly stops
	// rather than reaching past it for a shorter text.
	assert.True(t, used)
	assert.Contains(t, context, results[0].Text)
	assert.NotContains(t, context, "tiny")
	assert.LessOrEqual(t, utf8.RuneCountInString(context), budget)
}

func TestAssembleContext_OversizedTopRankBlocksAll(t *testing.T) {
	results := []domain.SearchResult{
		{Text: "a first chunk far too long for the budget below"},
		{Text: "tiny"},
	}

	context, used := assembleContext(results, 10)

	// Rank order is preserved: a lower-ranked chunk never appears in
	// place of an omitted higher-ranked one.
	assert.False(t, used)
	assert.Empty(t, context)
}

func TestFormatBlock_SourceAndDateLabels(t *testing.T) {
	r := domain.SearchResult{
		Text:     "tax deduction rules",
		Metadata: map[string]any{"source": "bravo.txt", "date": "2024-03-01"},
	}

	assert.Equal(t, "[Document 2] (Source: bravo.txt, 2024-03-01)\ntax deduction rules", formatBlock(2, r))

	bare := domain.SearchResult{Text: "cash flow"}
	assert.Equal(t, "[Document 1]\ncash flow", formatBlock(1, bare))
}
