// Package app wires the configured adapters into a running engine. It
// is the single place that knows which concrete implementations back
// the core ports.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/ragcore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/embedding"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/index/flat"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/metadata/memory"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/snapshot"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragcore/internal/chunker"
	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/services"
	"github.com/custodia-labs/ragcore/internal/logger"
)

// App is the assembled engine: the retrieval service plus the driven
// adapters callers may need direct access to.
type App struct {
	Config    file.Config
	Retrieval *services.RetrievalService
	Archive   driven.DocumentArchive
	Snapshots driven.SnapshotStore

	embedder driven.EmbeddingService
}

// Build loads configuration and assembles the engine. An empty cfgPath
// uses the standard config location; a non-empty dataDir overrides the
// configured one. The latest snapshot, if any, is restored so the index
// is warm before the first query.
func Build(ctx context.Context, cfgPath, dataDir string) (*App, error) {
	if cfgPath == "" {
		var err error
		cfgPath, err = file.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := file.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(filepath.Dir(cfgPath), "data")
	}

	ch, err := chunker.New(cfg.Chunking.WindowSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	gateway := embedding.NewGateway(provider,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithRate(cfg.Embedding.Rate),
	)

	index, err := flat.New(gateway.Dimensions())
	if err != nil {
		gateway.Close()
		return nil, err
	}

	snapshots, err := snapshot.NewStore(filepath.Join(cfg.DataDir, "snapshots"))
	if err != nil {
		gateway.Close()
		return nil, err
	}

	archive, err := sqlite.NewArchive(cfg.DataDir)
	if err != nil {
		gateway.Close()
		return nil, err
	}

	retrieval := services.NewRetrievalService(ch, gateway, index, memory.NewStore(),
		services.WithSnapshotStore(snapshots),
		services.WithArchive(archive),
		services.WithOversample(cfg.Retrieval.Oversample),
		services.WithDefaultK(cfg.Retrieval.TopK),
		services.WithDefaultContextLen(cfg.Retrieval.MaxContextLen),
	)

	// Restore the latest committed snapshot; a fresh data dir has none.
	if err := retrieval.Load(ctx, ""); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			archive.Close()
			gateway.Close()
			return nil, fmt.Errorf("restoring latest snapshot: %w", err)
		}
		logger.Debug("No snapshot found, starting with an empty index")
	}

	return &App{
		Config:    cfg,
		Retrieval: retrieval,
		Archive:   archive,
		Snapshots: snapshots,
		embedder:  gateway,
	}, nil
}

// buildProvider constructs the configured embedding provider.
func buildProvider(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		}), nil
	default:
		return nil, &domain.ConfigurationError{
			Field:  "embedding.provider",
			Reason: fmt.Sprintf("unknown provider %q", cfg.Provider),
		}
	}
}

// Close releases the engine's resources.
func (a *App) Close() error {
	var errs []error
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
