package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [document-id] [file]", ingestCmd.Use)
}

func TestIngestCmd_FromStdin(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("the document body"))
	rootCmd.SetArgs([]string{"ingest", "doc-1"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	mock := retrievalService.(*mockRetrieval)
	assert.Equal(t, "doc-1", mock.lastIngest.DocumentID)
	assert.Equal(t, "the document body", mock.lastIngest.Text)
	assert.Equal(t, "stdin", mock.lastIngest.SourceLabel)
	assert.Contains(t, buf.String(), "Ingested doc-1 (3 chunks)")
	assert.Contains(t, buf.String(), "Snapshot snap-test committed")
}

func TestIngestCmd_MetadataAndReplace(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("body"))
	rootCmd.SetArgs([]string{
		"ingest", "doc-1",
		"--meta", "category=tax,finance",
		"--meta", "author=fry",
		"--label", "report.pdf",
		"--replace",
	})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		ingestMeta = nil
		ingestLabel = ""
		ingestReplace = false
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	mock := retrievalService.(*mockRetrieval)
	assert.True(t, mock.lastIngest.Replace)
	assert.Equal(t, "report.pdf", mock.lastIngest.SourceLabel)
	assert.Equal(t, []any{"tax", "finance"}, mock.lastIngest.Metadata["category"])
	assert.Equal(t, "fry", mock.lastIngest.Metadata["author"])
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name     string
		pairs    []string
		expected map[string]any
		wantErr  bool
	}{
		{
			name:     "nil pairs",
			pairs:    nil,
			expected: nil,
		},
		{
			name:     "scalar value",
			pairs:    []string{"category=tax"},
			expected: map[string]any{"category": "tax"},
		},
		{
			name:     "comma value becomes list",
			pairs:    []string{"category=tax,finance"},
			expected: map[string]any{"category": []any{"tax", "finance"}},
		},
		{
			name:    "missing separator",
			pairs:   []string{"category"},
			wantErr: true,
		},
		{
			name:    "empty key",
			pairs:   []string{"=tax"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
