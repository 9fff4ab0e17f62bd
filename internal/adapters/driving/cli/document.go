package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage ingested documents",
	Long:  `List, view, delete, or reindex documents in the archive.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Print a document's text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document from the index and archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

var docsReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-ingest every archived document",
	Long: `Rebuilds the index from the archive by re-ingesting each stored
document. Use after switching embedding models or chunking settings.`,
	Args: cobra.NoArgs,
	RunE: runDocsReindex,
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsReindexCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if documentArchive == nil {
		return errors.New("document archive not configured")
	}

	docs, err := documentArchive.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		if docs[i].SourceLabel != "" {
			cmd.Printf("    Source:   %s\n", docs[i].SourceLabel)
		}
		cmd.Printf("    Chunks:   %d\n", docs[i].ChunkCount)
		cmd.Printf("    Ingested: %s\n", docs[i].IngestedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	if documentArchive == nil {
		return errors.New("document archive not configured")
	}

	doc, err := documentArchive.GetDocument(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %s not found", args[0])
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Println(doc.Text)
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	ctx := cmd.Context()
	docID := args[0]

	if err := retrievalService.DeleteDocument(ctx, docID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %s not found", docID)
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Document %s deleted.\n", docID)

	snapshotID, err := retrievalService.Save(ctx)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	cmd.Printf("Snapshot %s committed.\n", snapshotID)
	return nil
}

func runDocsReindex(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	if documentArchive == nil {
		return errors.New("document archive not configured")
	}

	ctx := cmd.Context()

	docs, err := documentArchive.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents to reindex.")
		return nil
	}

	for i := range docs {
		result, err := retrievalService.Ingest(ctx, domain.IngestRequest{
			DocumentID:  docs[i].ID,
			SourceLabel: docs[i].SourceLabel,
			Text:        docs[i].Text,
			Metadata:    docs[i].Metadata,
			Replace:     true,
		})
		if err != nil {
			return fmt.Errorf("reindexing %s: %w", docs[i].ID, err)
		}
		cmd.Printf("Reindexed %s (%d chunks).\n", result.DocumentID, result.Chunks)
	}

	snapshotID, err := retrievalService.Save(ctx)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	cmd.Printf("Snapshot %s committed.\n", snapshotID)
	return nil
}
