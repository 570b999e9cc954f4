package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is a brute-force in-memory nearest-neighbour store using
// cosine distance. Each Add and ReplaceSource is applied under one lock, so
// readers see a batch entirely or not at all.
type VectorStore struct {
	mu      sync.RWMutex
	dim     int
	records []driven.VectorRecord
	norms   []float64
}

// NewVectorStore creates an empty store. A zero dimension is fixed by the
// first insert.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{dim: dimensions}
}

// Add inserts a batch atomically. Every vector must share the store dimension.
func (s *VectorStore) Add(_ context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	norms, err := s.check(records)
	if err != nil {
		return err
	}
	s.insert(records, norms)
	return nil
}

// ReplaceSource swaps the vectors of sourceID for records under one lock.
// A rejected batch leaves the old vectors in place.
func (s *VectorStore) ReplaceSource(_ context.Context, sourceID string, records []driven.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	norms, err := s.check(records)
	if err != nil {
		return err
	}
	s.removeSource(sourceID)
	s.insert(records, norms)
	return nil
}

// check validates dimensions and returns the norm of each record.
// Callers must hold the write lock.
func (s *VectorStore) check(records []driven.VectorRecord) ([]float64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	dim := s.dim
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	norms := make([]float64, len(records))
	for i := range records {
		if len(records[i].Vector) != dim {
			return nil, fmt.Errorf("%w: record %d has %d, want %d",
				domain.ErrDimensionMismatch, i, len(records[i].Vector), dim)
		}
		norms[i] = Norm(records[i].Vector)
	}
	return norms, nil
}

func (s *VectorStore) insert(records []driven.VectorRecord, norms []float64) {
	if len(records) == 0 {
		return
	}
	s.dim = len(records[0].Vector)
	s.records = append(s.records, records...)
	s.norms = append(s.norms, norms...)
}

// Query returns up to k records nearest to vector, nearest first.
// Ties keep insertion order.
func (s *VectorStore) Query(_ context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.records) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", domain.ErrDimensionMismatch, len(vector), s.dim)
	}

	qNorm := Norm(vector)
	hits := make([]driven.VectorHit, len(s.records))
	for i := range s.records {
		hits[i] = driven.VectorHit{
			Record:   s.records[i],
			Distance: CosineDistance(vector, qNorm, s.records[i].Vector, s.norms[i]),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Count returns the number of stored vectors.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// DeleteSource removes every vector cut from sourceID.
func (s *VectorStore) DeleteSource(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeSource(sourceID)
	return nil
}

func (s *VectorStore) removeSource(sourceID string) {
	records := s.records[:0]
	norms := s.norms[:0]
	for i := range s.records {
		if s.records[i].Chunk.SourceID == sourceID {
			continue
		}
		records = append(records, s.records[i])
		norms = append(norms, s.norms[i])
	}
	clear(s.records[len(records):])
	s.records = records
	s.norms = norms
}

// DeleteAll removes every stored vector.
func (s *VectorStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.norms = nil
	return nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CosineDistance returns 1 - cos(a, b) given precomputed norms.
// A zero vector is treated as orthogonal to everything (distance 1).
func CosineDistance(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot/(aNorm*bNorm)
}
