package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

var (
	ingestLabel   string
	ingestMeta    []string
	ingestReplace bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [document-id] [file]",
	Short: "Ingest a document into the index",
	Long: `Chunks, embeds and indexes a text document under the given ID.
Reads the file argument, or stdin when no file is given. Either the
whole document is indexed or nothing is; a snapshot is committed on
success.

Metadata values containing commas become lists, so a chunk matches a
filter on any element:

  ragcore ingest report-2024 report.txt --meta category=tax,finance`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestLabel, "label", "l", "", "source label shown in results")
	ingestCmd.Flags().StringArrayVarP(&ingestMeta, "meta", "m", nil, "metadata as key=value (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "replace an existing document with the same ID")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	docID := args[0]

	text, label, err := readIngestInput(cmd, args)
	if err != nil {
		return err
	}
	if ingestLabel != "" {
		label = ingestLabel
	}

	metadata, err := parseMetadata(ingestMeta)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	result, err := retrievalService.Ingest(ctx, domain.IngestRequest{
		DocumentID:  docID,
		SourceLabel: label,
		Text:        text,
		Metadata:    metadata,
		Replace:     ingestReplace,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("document %s already exists (use --replace to re-ingest)", docID)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Ingested %s (%d chunks).\n", result.DocumentID, result.Chunks)

	snapshotID, err := retrievalService.Save(ctx)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	cmd.Printf("Snapshot %s committed.\n", snapshotID)
	return nil
}

// readIngestInput returns the document text and a default source label,
// from the file argument or stdin.
func readIngestInput(cmd *cobra.Command, args []string) (text, label string, err error) {
	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return "", "", fmt.Errorf("reading %s: %w", args[1], err)
		}
		return string(data), args[1], nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), "stdin", nil
}

// parseMetadata converts repeated key=value flags into a metadata map.
// Comma-separated values become lists.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	metadata := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q (want key=value)", pair)
		}
		if strings.Contains(value, ",") {
			parts := strings.Split(value, ",")
			list := make([]any, len(parts))
			for i, p := range parts {
				list[i] = p
			}
			metadata[key] = list
			continue
		}
		metadata[key] = value
	}
	return metadata, nil
}
