package resilience

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService retries Embed and EmbedBatch on transient failures.
type EmbeddingService struct {
	inner driven.EmbeddingService
	retry *retrier
}

// NewEmbedding wraps inner with the given policy.
func NewEmbedding(inner driven.EmbeddingService, p Policy) *EmbeddingService {
	return &EmbeddingService{inner: inner, retry: newRetrier("embedding "+inner.ModelName(), p)}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := s.retry.do(ctx, "embed", func(ctx context.Context) error {
		var err error
		out, err = s.inner.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch generates embeddings for multiple texts. A batch is retried
// as a whole.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := s.retry.do(ctx, "embed batch", func(ctx context.Context) error {
		var err error
		out, err = s.inner.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// Dimensions returns the wrapped vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service once, without retry.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}
