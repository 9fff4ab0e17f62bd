// Package cli implements the command-line interface of the retrieval
// engine. Commands talk to the core through the driving ports; the
// concrete engine is assembled lazily so that help and version never
// touch the data directory.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragcore/internal/app"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
	"github.com/custodia-labs/ragcore/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfgFile string
	dataDir string
	verbose bool
)

// Services the commands run against. Initialised by initEngine; tests
// swap these for mocks.
var (
	retrievalService driving.RetrievalService
	documentArchive  driven.DocumentArchive
)

// engine holds the assembled application when initEngine built one.
var engine *app.App

// buildEngine assembles the application; tests replace it.
var buildEngine = app.Build

var rootCmd = &cobra.Command{
	Use:   "ragcore",
	Short: "Local retrieval-augmented generation engine",
	Long: `ragcore ingests documents into a local vector index and answers
similarity queries with metadata filtering and context assembly,
either from the command line or over MCP.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initEngine,
	PersistentPostRunE: closeEngine,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.ragcore/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// initEngine assembles the application before a command runs. Commands
// that never touch the index skip the build, and tests that injected a
// service keep it.
func initEngine(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	switch cmd.Name() {
	case "version", "help", "completion":
		return nil
	}
	if retrievalService != nil {
		return nil
	}

	built, err := buildEngine(cmd.Context(), cfgFile, dataDir)
	if err != nil {
		return err
	}

	engine = built
	retrievalService = built.Retrieval
	documentArchive = built.Archive
	return nil
}

// closeEngine releases the engine built by initEngine, if any.
func closeEngine(_ *cobra.Command, _ []string) error {
	if engine == nil {
		return nil
	}
	err := engine.Close()
	engine = nil
	retrievalService = nil
	documentArchive = nil
	return err
}
