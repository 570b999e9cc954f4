package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// SaveChunks replaces the chunks of every document named by the batch.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	grouped := make(map[string][]domain.Chunk)
	for _, c := range chunks {
		grouped[c.SourceID] = append(grouped[c.SourceID], c)
	}
	for _, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Position < list[j].Position
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for docID, list := range grouped {
		s.chunks[docID] = list
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunks retrieves all chunks for a document, ordered by position.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[documentID]
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for i := range chunks {
			if chunks[i].ID == id {
				c := chunks[i]
				return &c, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// ListDocuments returns a summary of every document, oldest first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DocumentSummary, 0, len(s.documents))
	for id := range s.documents {
		doc := s.documents[id]
		result = append(result, domain.DocumentSummary{
			ID:         doc.ID,
			Title:      doc.Title,
			URI:        doc.URI,
			ChunkCount: len(s.chunks[id]),
			CreatedAt:  doc.CreatedAt,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Clear removes all documents and chunks.
func (s *DocumentStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[string]domain.Document)
	s.chunks = make(map[string][]domain.Chunk)
	return nil
}
