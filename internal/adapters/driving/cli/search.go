package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

var (
	searchK          int
	searchFilter     []string
	searchContextLen int
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index",
	Long: `Embeds the query and returns the most similar chunks by vector
distance, optionally restricted by metadata filters. Filters use the
same key=value form as ingest metadata; a comma-separated value
matches any of its elements:

  ragcore search "tax rules" --filter category=tax,finance`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 0, "number of results (0 = config default)")
	searchCmd.Flags().StringArrayVarP(&searchFilter, "filter", "f", nil, "metadata filter as key=value (repeatable)")
	searchCmd.Flags().IntVar(&searchContextLen, "context-len", 0, "print assembled context bounded to this many characters")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	filter, err := parseMetadata(searchFilter)
	if err != nil {
		return err
	}

	result, err := retrievalService.Retrieve(cmd.Context(), domain.Query{
		Text:          args[0],
		Filter:        domain.Filter(filter),
		K:             searchK,
		MaxContextLen: searchContextLen,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	return outputSearchTable(cmd, result)
}

func outputSearchJSON(cmd *cobra.Command, result *domain.RetrievalResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, result *domain.RetrievalResult) error {
	if len(result.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	width := terminalWidth()

	cmd.Println("Results:")
	cmd.Println()
	for i := range result.Results {
		r := &result.Results[i]

		cmd.Printf("  [%d] %s (%.4f)\n", i+1, r.ChunkID, r.Score)
		if source, ok := r.Metadata["source"].(string); ok && source != "" {
			cmd.Printf("      Source: %s\n", source)
		}
		if snippet := clipSnippet(r.Text, width-6); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	if result.ContextUsed {
		cmd.Println("Context:")
		cmd.Println(result.Context)
	}
	return nil
}

// terminalWidth returns the stdout width, or 80 when stdout is not a
// terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// clipSnippet flattens text to one line and clips it to width runes.
func clipSnippet(text string, width int) string {
	snippet := strings.Join(strings.Fields(text), " ")
	if width < 10 {
		width = 10
	}

	runes := []rune(snippet)
	if len(runes) <= width {
		return snippet
	}
	return string(runes[:width-3]) + "..."
}
