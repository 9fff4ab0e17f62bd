package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save and restore index snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the current index generation",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotSave,
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load [snapshot-id]",
	Short: "Restore the index from a snapshot",
	Long: `Replaces the in-memory index with the named snapshot. With no
argument the latest committed snapshot is loaded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshotLoad,
}

func init() {
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotLoadCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshotSave(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	id, err := retrievalService.Save(cmd.Context())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	cmd.Printf("Snapshot %s committed.\n", id)
	return nil
}

func runSnapshotLoad(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	id := ""
	if len(args) == 1 {
		id = args[0]
	}

	if err := retrievalService.Load(cmd.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if id == "" {
				return errors.New("no snapshot committed yet")
			}
			return fmt.Errorf("snapshot %s not found", id)
		}
		return fmt.Errorf("loading snapshot: %w", err)
	}

	stats := retrievalService.Stats(cmd.Context())
	cmd.Printf("Loaded %d documents (%d chunks).\n", stats.Documents, stats.Chunks)
	return nil
}
