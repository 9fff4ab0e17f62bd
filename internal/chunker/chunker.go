// Package chunker provides a token-window text chunker.
//
// Text is split on whitespace into tokens; windows of windowSize tokens
// are emitted, each new window repeating the trailing overlap tokens of
// the previous one. The final window may be shorter and is still
// emitted, so no trailing text is dropped.
package chunker

import (
	"strings"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// DefaultWindowSize is the default number of tokens per chunk.
const DefaultWindowSize = 200

// DefaultOverlap is the default number of overlapping tokens.
const DefaultOverlap = 40

// Chunker splits document text into overlapping token windows.
type Chunker struct {
	windowSize int
	overlap    int
}

// New creates a chunker. windowSize must be strictly greater than
// overlap, and overlap must be non-negative; anything else is rejected
// with *domain.ConfigurationError before any work starts.
func New(windowSize, overlap int) (*Chunker, error) {
	if windowSize <= 0 {
		return nil, &domain.ConfigurationError{Field: "window_size", Reason: "must be positive"}
	}
	if overlap < 0 {
		return nil, &domain.ConfigurationError{Field: "overlap", Reason: "must be non-negative"}
	}
	if overlap >= windowSize {
		return nil, &domain.ConfigurationError{Field: "overlap", Reason: "must be smaller than window_size"}
	}
	return &Chunker{windowSize: windowSize, overlap: overlap}, nil
}

// WindowSize returns the configured tokens per chunk.
func (c *Chunker) WindowSize() int { return c.windowSize }

// Overlap returns the configured overlapping token count.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into ordered chunk texts. Empty or whitespace-only
// input yields no chunks, not an error.
func (c *Chunker) Chunk(text string) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.windowSize - c.overlap
	chunks := make([]string, 0, len(tokens)/step+1)

	for start := 0; start < len(tokens); {
		end := start + c.windowSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
		if end == len(tokens) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}
