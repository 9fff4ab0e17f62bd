package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragcore/internal/adapters/driven/snapshot"
	"github.com/custodia-labs/ragcore/internal/adapters/driving/mcp"
	"github.com/custodia-labs/ragcore/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing retrieve and
ingest tools plus index resources to AI assistants.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default)
  ragcore mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  ragcore mcp serve --port 8080

While the server runs, snapshots committed by another process (a CLI
ingest, for example) are loaded automatically.`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Retrieval: retrievalService,
		Archive:   documentArchive,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	// Follow snapshots committed by other processes while serving.
	if engine != nil {
		snapshotDir := filepath.Join(engine.Config.DataDir, "snapshots")
		watcher, err := snapshot.WatchCurrent(snapshotDir, func(id string) {
			if err := retrievalService.Load(cmd.Context(), id); err != nil {
				logger.Error("Loading snapshot %s: %v", id, err)
			}
		})
		if err != nil {
			logger.Warn("Snapshot watcher unavailable: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
