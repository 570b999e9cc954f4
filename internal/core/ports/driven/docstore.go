package driven

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// DocumentStore persists documents and chunks.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores chunks for a document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document, ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns a summary of every stored document.
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)

	// Clear removes all documents and chunks.
	Clear(ctx context.Context) error
}
