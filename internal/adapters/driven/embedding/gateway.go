// Package embedding provides the gateway that core services use to
// reach an embedding provider: it batches requests, throttles provider
// calls, and converts provider failures into the typed error callers
// roll back on.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/logger"
)

// Ensure Gateway implements the interface.
var _ driven.EmbeddingService = (*Gateway)(nil)

// DefaultBatchSize is the maximum texts sent to the provider per call.
const DefaultBatchSize = 64

// DefaultRate is the proactive throttle on provider calls (per second).
const DefaultRate = 5

// Gateway decorates an EmbeddingService with sub-batching and rate
// limiting. Inputs larger than the batch cap are split into sequential
// sub-batches; if any sub-batch fails the whole call fails with
// *domain.EmbeddingError carrying the count of texts already embedded.
type Gateway struct {
	provider  driven.EmbeddingService
	batchSize int
	limiter   *rate.Limiter
}

// Option configures the gateway.
type Option func(*Gateway)

// WithBatchSize caps the number of texts per provider call.
func WithBatchSize(size int) Option {
	return func(g *Gateway) {
		if size > 0 {
			g.batchSize = size
		}
	}
}

// WithRate sets the provider call throttle in calls per second.
func WithRate(callsPerSecond float64) Option {
	return func(g *Gateway) {
		if callsPerSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1)
		}
	}
}

// NewGateway creates a gateway around the given provider.
func NewGateway(provider driven.EmbeddingService, opts ...Option) *Gateway {
	g := &Gateway{
		provider:  provider,
		batchSize: DefaultBatchSize,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRate), 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Embed generates a vector embedding for a single text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for the given texts, one vector per
// input text, in input order.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		sub := texts[start:end]

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &domain.EmbeddingError{Embedded: start, Err: err}
		}

		logger.Debug("Embedding sub-batch [%d:%d] of %d texts", start, end, len(texts))
		batch, err := g.provider.EmbedBatch(ctx, sub)
		if err != nil {
			logger.Warn("Embedding sub-batch failed after %d texts: %v", start, err)
			return nil, &domain.EmbeddingError{Embedded: start, Err: err}
		}
		if len(batch) != len(sub) {
			err := fmt.Errorf("provider returned %d vectors for %d texts", len(batch), len(sub))
			return nil, &domain.EmbeddingError{Embedded: start, Err: err}
		}
		for i, vec := range batch {
			if len(vec) != g.provider.Dimensions() {
				err := &domain.DimensionError{Want: g.provider.Dimensions(), Got: len(vec)}
				return nil, &domain.EmbeddingError{Embedded: start + i, Err: err}
			}
		}

		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// Dimensions returns the provider's embedding vector size.
func (g *Gateway) Dimensions() int { return g.provider.Dimensions() }

// ModelName returns the provider's model name.
func (g *Gateway) ModelName() string { return g.provider.ModelName() }

// Ping validates the provider is reachable.
func (g *Gateway) Ping(ctx context.Context) error { return g.provider.Ping(ctx) }

// Close releases provider resources.
func (g *Gateway) Close() error { return g.provider.Close() }
