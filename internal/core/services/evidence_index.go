package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// EvidenceIndex turns chunks into searchable evidence.
//
// It is the only place where store distances become relevance scores:
// score = 1 - cosine distance, so higher is better. Writes are serialised
// and each is a single store call; Search calls run concurrently under the
// read lock.
type EvidenceIndex struct {
	mu       sync.RWMutex
	embedder driven.EmbeddingService
	store    driven.VectorStore
}

// NewEvidenceIndex creates an index over an injected vector store.
// The embedder may be nil, in which case Index and Search fail with
// domain.ErrEmbeddingUnavailable.
func NewEvidenceIndex(embedder driven.EmbeddingService, store driven.VectorStore) *EvidenceIndex {
	return &EvidenceIndex{
		embedder: embedder,
		store:    store,
	}
}

// Available reports whether an embedder is configured.
func (x *EvidenceIndex) Available() bool {
	return x.embedder != nil
}

// Index embeds every chunk and inserts the batch in one store call.
// If any embedding fails nothing is inserted.
func (x *EvidenceIndex) Index(ctx context.Context, chunks []domain.Chunk, metadata map[string]any) error {
	return x.write(ctx, "", chunks, metadata)
}

// Replace swaps the evidence stored for sourceID with chunks. Readers see
// either the old set or the new one, and a failed write keeps the old set.
func (x *EvidenceIndex) Replace(ctx context.Context, sourceID string, chunks []domain.Chunk, metadata map[string]any) error {
	if sourceID == "" {
		return fmt.Errorf("%w: empty source id", domain.ErrInvalidInput)
	}
	return x.write(ctx, sourceID, chunks, metadata)
}

func (x *EvidenceIndex) write(ctx context.Context, replace string, chunks []domain.Chunk, metadata map[string]any) error {
	if len(chunks) == 0 && replace == "" {
		return nil
	}
	if x.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	records, err := x.embed(ctx, chunks, metadata)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if replace != "" {
		err = x.store.ReplaceSource(ctx, replace, records)
	} else {
		err = x.store.Add(ctx, records)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	logger.Debug("Indexed %d chunks", len(records))
	return nil
}

// DeleteSource removes the evidence stored for sourceID.
func (x *EvidenceIndex) DeleteSource(ctx context.Context, sourceID string) error {
	if sourceID == "" {
		return fmt.Errorf("%w: empty source id", domain.ErrInvalidInput)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.store.DeleteSource(ctx, sourceID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (x *EvidenceIndex) embed(ctx context.Context, chunks []domain.Chunk, metadata map[string]any) ([]driven.VectorRecord, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	done := logger.Timed(fmt.Sprintf("embed %d chunks", len(chunks)))
	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	done()
	if err != nil {
		return nil, fmt.Errorf("%w: embed chunks: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}

	records := make([]driven.VectorRecord, len(chunks))
	for i := range chunks {
		chunk := chunks[i]
		chunk.Embedding = vectors[i]
		records[i] = driven.VectorRecord{
			Chunk:    chunk,
			Vector:   vectors[i],
			Metadata: mergeMetadata(chunk.Metadata, metadata),
		}
	}
	return records, nil
}

// Search returns up to k evidence items for query, best first.
// An empty index returns an empty slice.
func (x *EvidenceIndex) Search(ctx context.Context, query string, k int) ([]domain.EvidenceItem, error) {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return []domain.EvidenceItem{}, nil
	}
	if x.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	count, err := x.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []domain.EvidenceItem{}, nil
	}

	// Embed outside the lock so writers never wait on the provider.
	vector, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingUnavailable, err)
	}

	x.mu.RLock()
	hits, err := x.store.Query(ctx, vector, k)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	items := make([]domain.EvidenceItem, len(hits))
	for i, hit := range hits {
		items[i] = domain.EvidenceItem{
			Chunk:    hit.Record.Chunk,
			Score:    1 - hit.Distance,
			Metadata: hit.Record.Metadata,
		}
	}
	return items, nil
}

// Reset removes all indexed content.
func (x *EvidenceIndex) Reset(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Count returns the number of indexed chunks.
func (x *EvidenceIndex) Count(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, err := x.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// mergeMetadata returns a new map of extra overlaid by chunk metadata.
func mergeMetadata(chunk, extra map[string]any) map[string]any {
	out := make(map[string]any, len(chunk)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range chunk {
		out[k] = v
	}
	return out
}
