package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

func TestEvidenceIndex_SearchEmptyStore(t *testing.T) {
	index, _ := newTestIndex()

	items, err := index.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestEvidenceIndex_SearchRanking(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	require.NoError(t, index.Index(ctx, testChunks("doc", corpus...), nil))

	tests := []struct {
		name string
		k    int
		want int
	}{
		{"k below N", 2, 2},
		{"k equals N", 5, 5},
		{"k above N", 20, 5},
		{"zero k", 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items, err := index.Search(ctx, "photovoltaic solar electricity", tc.k)
			require.NoError(t, err)
			require.Len(t, items, tc.want)
			for i := 1; i < len(items); i++ {
				assert.GreaterOrEqual(t, items[i-1].Score, items[i].Score)
			}
			for _, item := range items {
				assert.LessOrEqual(t, item.Score, 1.0+1e-9)
				assert.GreaterOrEqual(t, item.Score, -1.0-1e-9)
			}
		})
	}
}

func TestEvidenceIndex_ScoreIsOneMinusDistance(t *testing.T) {
	ctx := context.Background()
	emb := newMockEmbedder()
	emb.vectors["same"] = []float32{1, 0}
	emb.vectors["orthogonal"] = []float32{0, 1}
	emb.vectors["query"] = []float32{1, 0}
	index := NewEvidenceIndex(emb, memory.NewVectorStore(2))

	require.NoError(t, index.Index(ctx, testChunks("doc", "orthogonal", "same"), nil))

	items, err := index.Search(ctx, "query", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "same", items[0].Chunk.Text)
	assert.InDelta(t, 1.0, items[0].Score, 1e-6)
	assert.InDelta(t, 0.0, items[1].Score, 1e-6)
}

func TestEvidenceIndex_BlankQuery(t *testing.T) {
	index, emb := newTestIndex()
	require.NoError(t, index.Index(context.Background(), testChunks("doc", corpus...), nil))

	items, err := index.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, emb.queryLog())
}

func TestEvidenceIndex_Metadata(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	chunks := testChunks("doc", corpus[0])
	chunks[0].Metadata = map[string]any{"title": "Solar"}

	require.NoError(t, index.Index(ctx, chunks, map[string]any{"document_id": "doc", "title": "ignored"}))

	items, err := index.Search(ctx, corpus[0], 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "doc", items[0].Metadata["document_id"])
	assert.Equal(t, "Solar", items[0].Metadata["title"])
	assert.NotEmpty(t, items[0].Chunk.Embedding)
}

func TestEvidenceIndex_NoEmbedder(t *testing.T) {
	index := NewEvidenceIndex(nil, memory.NewVectorStore(0))
	assert.False(t, index.Available())

	err := index.Index(context.Background(), testChunks("doc", "x"), nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = index.Search(context.Background(), "x", 3)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEvidenceIndex_EmbedFailureInsertsNothing(t *testing.T) {
	ctx := context.Background()
	index, emb := newTestIndex()
	emb.err = errors.New("quota exceeded")

	err := index.Index(ctx, testChunks("doc", corpus...), nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEvidenceIndex_StoreFailure(t *testing.T) {
	ctx := context.Background()
	index := NewEvidenceIndex(newMockEmbedder(), brokenStore{})

	assert.ErrorIs(t, index.Index(ctx, testChunks("doc", "x"), nil), domain.ErrStoreUnavailable)

	_, err := index.Search(ctx, "x", 3)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errDiskGone)

	assert.ErrorIs(t, index.Reset(ctx), domain.ErrStoreUnavailable)
	assert.ErrorIs(t, index.Replace(ctx, "doc", testChunks("doc", "x"), nil), domain.ErrStoreUnavailable)
	assert.ErrorIs(t, index.DeleteSource(ctx, "doc"), domain.ErrStoreUnavailable)
}

func TestEvidenceIndex_Replace(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	require.NoError(t, index.Index(ctx, testChunks("a", corpus[:3]...), nil))
	require.NoError(t, index.Index(ctx, testChunks("b", corpus[3:]...), nil))

	require.NoError(t, index.Replace(ctx, "a", testChunks("a", corpus[0]), nil))

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.ErrorIs(t, index.Replace(ctx, "", nil, nil), domain.ErrInvalidInput)
}

func TestEvidenceIndex_FailedReplaceKeepsEvidence(t *testing.T) {
	ctx := context.Background()
	index, emb := newTestIndex()
	require.NoError(t, index.Index(ctx, testChunks("a", corpus[:2]...), nil))

	// A model change yields vectors the store rejects after the old
	// evidence would have been deleted.
	emb.vectors["wider"] = make([]float32, testDims+1)
	err := index.Replace(ctx, "a", testChunks("a", corpus[2], "wider"), nil)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	items, err := index.Search(ctx, corpus[0], 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, corpus[0], items[0].Chunk.Text)
}

func TestEvidenceIndex_IndexTwiceKeepsBoth(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	chunks := testChunks("doc", corpus[:3]...)

	require.NoError(t, index.Index(ctx, chunks, nil))
	require.NoError(t, index.Index(ctx, chunks, nil))

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestEvidenceIndex_DeleteSource(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	require.NoError(t, index.Index(ctx, testChunks("a", corpus[:3]...), nil))
	require.NoError(t, index.Index(ctx, testChunks("b", corpus[3:]...), nil))

	require.NoError(t, index.DeleteSource(ctx, "a"))

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(corpus)-3, count)

	items, err := index.Search(ctx, corpus[0], len(corpus))
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, "b", item.Chunk.SourceID)
	}

	require.NoError(t, index.DeleteSource(ctx, "missing"))
	assert.ErrorIs(t, index.DeleteSource(ctx, ""), domain.ErrInvalidInput)
}

func TestEvidenceIndex_WritesDoNotWaitOnQueryEmbedding(t *testing.T) {
	ctx := context.Background()
	emb := newGatedEmbedder()
	index := NewEvidenceIndex(emb, memory.NewVectorStore(0))
	require.NoError(t, index.Index(ctx, testChunks("doc", corpus...), nil))

	type result struct {
		items []domain.EvidenceItem
		err   error
	}
	done := make(chan result, 1)
	go func() {
		items, err := index.Search(ctx, corpus[0], 3)
		done <- result{items, err}
	}()
	<-emb.entered

	reset := make(chan error, 1)
	go func() { reset <- index.Reset(ctx) }()
	select {
	case err := <-reset:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reset blocked behind an in-flight query embedding")
	}

	close(emb.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Empty(t, res.items)
}

func TestEvidenceIndex_Reset(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	require.NoError(t, index.Index(ctx, testChunks("doc", corpus...), nil))

	require.NoError(t, index.Reset(ctx))

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
