package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	stats := retrievalService.Stats(cmd.Context())

	cmd.Println("Index status:")
	cmd.Printf("  Documents:  %d\n", stats.Documents)
	cmd.Printf("  Chunks:     %d\n", stats.Chunks)
	cmd.Printf("  Dimensions: %d\n", stats.Dimensions)
	cmd.Printf("  Generation: %d\n", stats.Generation)
	return nil
}
