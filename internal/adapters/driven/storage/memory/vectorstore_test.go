package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

func record(id string, vec ...float32) driven.VectorRecord {
	return driven.VectorRecord{Chunk: domain.Chunk{ID: id, Text: id}, Vector: vec}
}

func TestVectorStore_QueryEmpty(t *testing.T) {
	store := NewVectorStore(3)

	hits, err := store.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestVectorStore_QueryRanking(t *testing.T) {
	store := NewVectorStore(2)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []driven.VectorRecord{
		record("orthogonal", 0, 1),
		record("same", 2, 0),
		record("close", 1, 0.2),
		record("opposite", -1, 0),
	}))

	hits, err := store.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	ids := []string{hits[0].Record.Chunk.ID, hits[1].Record.Chunk.ID, hits[2].Record.Chunk.ID, hits[3].Record.Chunk.ID}
	assert.Equal(t, []string{"same", "close", "orthogonal", "opposite"}, ids)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 1.0, hits[2].Distance, 1e-9)
	assert.InDelta(t, 2.0, hits[3].Distance, 1e-9)

	top, err := store.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	store := NewVectorStore(0)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []driven.VectorRecord{record("a", 1, 2, 3)}))

	err := store.Add(ctx, []driven.VectorRecord{record("b", 1, 2, 3), record("c", 1, 2)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "a rejected batch must insert nothing")

	_, err = store.Query(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_DeleteAll(t *testing.T) {
	store := NewVectorStore(1)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []driven.VectorRecord{record("a", 1), record("b", 2)}))
	require.NoError(t, store.DeleteAll(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, store.Close())
}

func sourced(id, sourceID string, vec ...float32) driven.VectorRecord {
	rec := record(id, vec...)
	rec.Chunk.SourceID = sourceID
	return rec
}

func TestVectorStore_AddKeepsDuplicateIDs(t *testing.T) {
	store := NewVectorStore(0)
	ctx := context.Background()
	batch := []driven.VectorRecord{record("a", 1, 0), record("b", 0, 1)}

	require.NoError(t, store.Add(ctx, batch))
	require.NoError(t, store.Add(ctx, batch))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestVectorStore_ReplaceSource(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		records []driven.VectorRecord
		wantErr error
		wantIDs []string
	}{
		{
			name:    "swaps source vectors",
			records: []driven.VectorRecord{sourced("a3", "docA", 1, 1)},
			wantIDs: []string{"b1", "a3"},
		},
		{
			name:    "empty batch deletes",
			records: nil,
			wantIDs: []string{"b1"},
		},
		{
			name:    "rejected batch keeps old vectors",
			records: []driven.VectorRecord{sourced("a3", "docA", 1, 1), sourced("a4", "docA", 1)},
			wantErr: domain.ErrDimensionMismatch,
			wantIDs: []string{"a1", "a2", "b1"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := NewVectorStore(0)
			require.NoError(t, store.Add(ctx, []driven.VectorRecord{
				sourced("a1", "docA", 1, 0),
				sourced("a2", "docA", 0, 1),
				sourced("b1", "docB", 1, 0),
			}))

			err := store.ReplaceSource(ctx, "docA", tc.records)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			store.mu.RLock()
			ids := make([]string, len(store.records))
			for i := range store.records {
				ids[i] = store.records[i].Chunk.ID
			}
			store.mu.RUnlock()
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestVectorStore_ConcurrentBatchesAreAtomic(t *testing.T) {
	store := NewVectorStore(1)
	ctx := context.Background()
	const batch = 10

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			records := make([]driven.VectorRecord, batch)
			for j := range records {
				records[j] = record("x", 1)
			}
			_ = store.Add(ctx, records)
		}()
		go func() {
			defer wg.Done()
			n, _ := store.Count(ctx)
			assert.Zero(t, n%batch, "observed a partial batch")
		}()
	}
	wg.Wait()
}

func TestCosineDistance_ZeroVector(t *testing.T) {
	assert.Equal(t, 1.0, CosineDistance([]float32{0, 0}, 0, []float32{1, 0}, 1))
}
