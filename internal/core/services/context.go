package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// blockSeparator joins context blocks.
const blockSeparator = "\n\n"

// assembleContext packs result texts into a labelled context string, in
// rank order, stopping before the first block that would exceed the
// budget (in runes). Texts are never truncated, and a lower-ranked
// chunk never appears in place of an omitted higher-ranked one.
func assembleContext(results []domain.SearchResult, budget int) (string, bool) {
	var b strings.Builder
	used := 0
	included := 0

	for _, r := range results {
		block := formatBlock(included+1, r)
		cost := utf8.RuneCountInString(block)
		if included > 0 {
			cost += utf8.RuneCountInString(blockSeparator)
		}
		if used+cost > budget {
			break
		}
		if included > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString(block)
		used += cost
		included++
	}

	return b.String(), included > 0
}

// formatBlock renders one result as a labelled context block:
//
//	[Document 1] (Source: report.pdf, 2024-03-01)
//	<chunk text>
//
// Source and date come from the chunk metadata when present.
func formatBlock(rank int, r domain.SearchResult) string {
	header := fmt.Sprintf("[Document %d]", rank)

	var origin []string
	if src, ok := r.Metadata["source"].(string); ok && src != "" {
		origin = append(origin, "Source: "+src)
	}
	if date, ok := r.Metadata["date"].(string); ok && date != "" {
		origin = append(origin, date)
	}
	if len(origin) > 0 {
		header += " (" + strings.Join(origin, ", ") + ")"
	}

	return header + "\n" + r.Text
}

// augmentPrompt wraps a system prompt with retrieved context.
func augmentPrompt(systemPrompt, context string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nUse the following retrieved context to answer. If the context is not relevant, say so.\n\n")
	b.WriteString(context)
	return b.String()
}
