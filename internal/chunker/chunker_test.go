package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		c, err := New(40, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.WindowSize() != 40 || c.Overlap() != 10 {
			t.Errorf("unexpected configuration: %d/%d", c.WindowSize(), c.Overlap())
		}
	})

	t.Run("zero overlap is valid", func(t *testing.T) {
		if _, err := New(10, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("overlap equal to window rejected", func(t *testing.T) {
		_, err := New(10, 10)
		var cfgErr *domain.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
	})

	t.Run("negative overlap rejected", func(t *testing.T) {
		_, err := New(10, -1)
		var cfgErr *domain.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
	})

	t.Run("non-positive window rejected", func(t *testing.T) {
		_, err := New(0, 0)
		var cfgErr *domain.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
	})
}

func TestChunk_Empty(t *testing.T) {
	c, _ := New(40, 10)
	if got := c.Chunk(""); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := c.Chunk("  \n\t "); got != nil {
		t.Errorf("expected nil for whitespace input, got %v", got)
	}
}

// 100 tokens at window 40 / overlap 10 must produce windows
// [0:40], [30:70], [60:100].
func TestChunk_Boundaries(t *testing.T) {
	tokens := make([]string, 100)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("t%d", i)
	}
	c, _ := New(40, 10)

	chunks := c.Chunk(strings.Join(tokens, " "))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantBounds := [][2]int{{0, 40}, {30, 70}, {60, 100}}
	for i, b := range wantBounds {
		want := strings.Join(tokens[b[0]:b[1]], " ")
		if chunks[i] != want {
			t.Errorf("chunk %d: expected tokens [%d:%d]", i, b[0], b[1])
		}
	}
}

func TestChunk_ShortTail(t *testing.T) {
	c, _ := New(5, 2)
	chunks := c.Chunk("a b c d e f g")
	// [0:5], [3:7] - the short tail is emitted, not dropped.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1] != "d e f g" {
		t.Errorf("unexpected tail chunk: %q", chunks[1])
	}
}

func TestChunk_SingleWindow(t *testing.T) {
	c, _ := New(40, 10)
	chunks := c.Chunk("only a few tokens here")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "only a few tokens here" {
		t.Errorf("unexpected chunk: %q", chunks[0])
	}
}

// Removing the declared overlap from each window after the first must
// reproduce the original token sequence.
func TestChunk_Reconstruction(t *testing.T) {
	configs := [][2]int{{40, 10}, {7, 3}, {5, 0}, {3, 2}}
	tokens := make([]string, 83)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(tokens, " ")

	for _, cfg := range configs {
		t.Run(fmt.Sprintf("window=%d overlap=%d", cfg[0], cfg[1]), func(t *testing.T) {
			c, err := New(cfg[0], cfg[1])
			if err != nil {
				t.Fatal(err)
			}
			var rebuilt []string
			for i, chunk := range c.Chunk(text) {
				parts := strings.Fields(chunk)
				if i > 0 {
					parts = parts[cfg[1]:]
				}
				rebuilt = append(rebuilt, parts...)
			}
			if strings.Join(rebuilt, " ") != text {
				t.Errorf("reconstruction mismatch")
			}
		})
	}
}
