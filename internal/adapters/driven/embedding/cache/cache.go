// Package cache provides an LRU embedding cache decorator. Repeated sub-task
// queries across research rounds are answered from memory instead of the
// remote provider.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/minio/highwayhash"

	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// DefaultSize is the entry bound used when size is not positive.
const DefaultSize = 256

// hashKey is the fixed highwayhash key. Keys only need to be stable within
// one process.
var hashKey = []byte("sercha-research-embedding-cache!")

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

type entry struct {
	key    uint64
	vector []float32
}

// EmbeddingService caches embeddings by a hash of model and text.
type EmbeddingService struct {
	inner driven.EmbeddingService
	size  int

	mu     sync.Mutex
	ll     *list.List
	items  map[uint64]*list.Element
	hits   int
	misses int
}

// New wraps inner with a cache holding at most size vectors.
func New(inner driven.EmbeddingService, size int) *EmbeddingService {
	if size <= 0 {
		size = DefaultSize
	}
	return &EmbeddingService{
		inner: inner,
		size:  size,
		ll:    list.New(),
		items: make(map[uint64]*list.Element),
	}
}

// Hash returns the cache key for text under model.
func Hash(model, text string) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	_, _ = h.Write([]byte(model))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))
	return h.Sum64(), nil
}

// Embed returns the cached vector for text, embedding it on a miss.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key, err := Hash(s.inner.ModelName(), text)
	if err != nil {
		return nil, fmt.Errorf("hash text: %w", err)
	}
	if v, ok := s.get(key); ok {
		return v, nil
	}

	v, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.put(key, v)
	return clone(v), nil
}

// EmbedBatch serves cached texts from memory and embeds the rest in one
// inner call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := s.inner.ModelName()
	out := make([][]float32, len(texts))
	keys := make([]uint64, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		key, err := Hash(model, text)
		if err != nil {
			return nil, fmt.Errorf("hash text %d: %w", i, err)
		}
		keys[i] = key
		if v, ok := s.get(key); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := s.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(vectors), len(missing))
	}
	for j, i := range missingIdx {
		s.put(keys[i], vectors[j])
		out[i] = clone(vectors[j])
	}
	return out, nil
}

// Stats returns the hit and miss counts.
func (s *EmbeddingService) Stats() (hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

// Dimensions returns the wrapped vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close drops cached vectors and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	s.ll.Init()
	s.items = make(map[uint64]*list.Element)
	s.mu.Unlock()
	return s.inner.Close()
}

func (s *EmbeddingService) get(key uint64) ([]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok {
		s.misses++
		return nil, false
	}
	s.hits++
	s.ll.MoveToFront(el)
	return clone(el.Value.(*entry).vector), true
}

func (s *EmbeddingService) put(key uint64, v []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[key]; ok {
		el.Value.(*entry).vector = clone(v)
		s.ll.MoveToFront(el)
		return
	}
	s.items[key] = s.ll.PushFront(&entry{key: key, vector: clone(v)})
	for s.ll.Len() > s.size {
		oldest := s.ll.Back()
		s.ll.Remove(oldest)
		delete(s.items, oldest.Value.(*entry).key)
	}
}

// clone keeps callers from mutating cached vectors.
func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
