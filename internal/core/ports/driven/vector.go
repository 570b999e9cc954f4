package driven

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// VectorStore is the nearest-neighbour store behind the evidence index.
//
// Implementations must treat each Add and ReplaceSource call as one atomic
// batch: a concurrent Query observes either none or all of it, and a failed
// call leaves the store unchanged. Add never dedups; adding a chunk ID twice
// stores two records.
type VectorStore interface {
	// Add inserts a batch of vectors with their chunk payloads.
	Add(ctx context.Context, records []VectorRecord) error

	// Query returns up to k records nearest to the vector, nearest first.
	// An empty store returns an empty slice and no error.
	Query(ctx context.Context, vector []float32, k int) ([]VectorHit, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// ReplaceSource removes every vector whose chunk came from sourceID and
	// inserts records in their place, in one step.
	ReplaceSource(ctx context.Context, sourceID string, records []VectorRecord) error

	// DeleteSource removes every vector whose chunk came from sourceID.
	DeleteSource(ctx context.Context, sourceID string) error

	// DeleteAll removes every stored vector.
	DeleteAll(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorRecord is one stored vector with its payload.
type VectorRecord struct {
	// Chunk is the payload.
	Chunk domain.Chunk

	// Vector is the chunk embedding.
	Vector []float32

	// Metadata is caller-supplied data stored alongside the chunk.
	Metadata map[string]any
}

// VectorHit represents a nearest-neighbour result.
type VectorHit struct {
	// Record is the stored record.
	Record VectorRecord

	// Distance is the cosine distance (0 = identical, 2 = opposite).
	Distance float64
}
