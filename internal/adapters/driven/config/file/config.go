// Package file loads and persists the engine configuration as TOML.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// Config is the full engine configuration. Zero values fall back to the
// defaults below; Validate rejects combinations the engine cannot run
// with before any work starts.
type Config struct {
	// DataDir holds the archive database and snapshot directory.
	// Defaults to ~/.ragcore/data.
	DataDir string `toml:"data_dir"`

	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Retrieval RetrievalConfig `toml:"retrieval"`
}

// ChunkingConfig controls the token-window chunker.
type ChunkingConfig struct {
	// WindowSize is the chunk size in whitespace tokens.
	WindowSize int `toml:"window_size"`

	// Overlap is the token overlap between consecutive chunks.
	Overlap int `toml:"overlap"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`

	// Model is the embedding model name; empty uses the provider default.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint; empty uses the default.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates the provider. The OPENAI_API_KEY environment
	// variable takes precedence so keys can stay out of the file.
	APIKey string `toml:"api_key"`

	// Timeout bounds a single provider request.
	Timeout time.Duration `toml:"timeout"`

	// Dimensions is the embedding vector size. Only needed for Ollama
	// models whose size the engine cannot infer; OpenAI models are known.
	Dimensions int `toml:"dimensions"`

	// BatchSize caps texts per provider call.
	BatchSize int `toml:"batch_size"`

	// Rate throttles provider calls per second.
	Rate float64 `toml:"rate"`
}

// RetrievalConfig tunes search and context assembly.
type RetrievalConfig struct {
	// TopK is the default number of results.
	TopK int `toml:"top_k"`

	// Oversample multiplies k for the pre-filter candidate pool.
	Oversample int `toml:"oversample"`

	// MaxContextLen is the default context budget in runes.
	MaxContextLen int `toml:"max_context_len"`
}

// Default returns the configuration the engine runs with when no file
// exists.
func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			WindowSize: 200,
			Overlap:    40,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Timeout:   60 * time.Second,
			BatchSize: 64,
			Rate:      5,
		},
		Retrieval: RetrievalConfig{
			TopK:          5,
			Oversample:    3,
			MaxContextLen: 8000,
		},
	}
}

// DefaultPath returns the standard config file location,
// ~/.ragcore/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ragcore", "config.toml"), nil
}

// Load reads the TOML file at path, filling unset fields with defaults.
// A missing file is not an error: the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating the directory if
// needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// Restricted permissions: the file may hold an API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Chunking.WindowSize <= 0 {
		return &domain.ConfigurationError{Field: "chunking.window_size", Reason: "must be positive"}
	}
	if c.Chunking.Overlap < 0 {
		return &domain.ConfigurationError{Field: "chunking.overlap", Reason: "must not be negative"}
	}
	if c.Chunking.Overlap >= c.Chunking.WindowSize {
		return &domain.ConfigurationError{Field: "chunking.overlap", Reason: "must be smaller than window_size"}
	}

	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return &domain.ConfigurationError{
			Field:  "embedding.provider",
			Reason: fmt.Sprintf("unknown provider %q (want openai or ollama)", c.Embedding.Provider),
		}
	}
	if c.Embedding.BatchSize <= 0 {
		return &domain.ConfigurationError{Field: "embedding.batch_size", Reason: "must be positive"}
	}
	if c.Embedding.Rate <= 0 {
		return &domain.ConfigurationError{Field: "embedding.rate", Reason: "must be positive"}
	}

	if c.Retrieval.TopK <= 0 {
		return &domain.ConfigurationError{Field: "retrieval.top_k", Reason: "must be positive"}
	}
	if c.Retrieval.Oversample < 1 {
		return &domain.ConfigurationError{Field: "retrieval.oversample", Reason: "must be at least 1"}
	}
	if c.Retrieval.MaxContextLen < 0 {
		return &domain.ConfigurationError{Field: "retrieval.max_context_len", Reason: "must not be negative"}
	}

	return nil
}

// applyDefaults fills zero-valued fields a partial file left unset.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Chunking.WindowSize == 0 {
		cfg.Chunking.WindowSize = def.Chunking.WindowSize
		if cfg.Chunking.Overlap == 0 {
			cfg.Chunking.Overlap = def.Chunking.Overlap
		}
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = def.Embedding.Timeout
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if cfg.Embedding.Rate == 0 {
		cfg.Embedding.Rate = def.Embedding.Rate
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.Oversample == 0 {
		cfg.Retrieval.Oversample = def.Retrieval.Oversample
	}
	if cfg.Retrieval.MaxContextLen == 0 {
		cfg.Retrieval.MaxContextLen = def.Retrieval.MaxContextLen
	}
}
