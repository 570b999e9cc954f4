package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-research/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore with a brute-force cosine scan
// over the vectors table. Add and ReplaceSource each commit in one
// transaction, so readers see a batch entirely or not at all.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// Add appends a batch of vectors. Every vector must share the dimension of
// those already stored. Chunk IDs are not unique; adding one twice stores
// two rows.
func (s *vectorStore) Add(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertVectors(ctx, tx, records)
	})
}

// ReplaceSource deletes the vectors of sourceID and inserts records in the
// same transaction. Any failure rolls back to the old vectors.
func (s *vectorStore) ReplaceSource(ctx context.Context, sourceID string, records []driven.VectorRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE source_id = ?", sourceID); err != nil {
			return fmt.Errorf("deleting vectors: %w", err)
		}
		return insertVectors(ctx, tx, records)
	})
}

func (s *vectorStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// insertVectors appends records after the highest stored sequence number.
func insertVectors(ctx context.Context, tx *sql.Tx, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	dim, err := storedDimension(ctx, tx)
	if err != nil {
		return err
	}
	if dim == 0 {
		dim = len(records[0].Vector)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM vectors").Scan(&seq); err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (chunk_id, source_id, content, position, chunk_metadata, metadata, embedding, dims, norm, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		if len(rec.Vector) != dim {
			return fmt.Errorf("%w: record %d has %d, want %d",
				domain.ErrDimensionMismatch, i, len(rec.Vector), dim)
		}
		chunkMD, err := marshalMetadata(rec.Chunk.Metadata)
		if err != nil {
			return err
		}
		recMD, err := marshalMetadata(rec.Metadata)
		if err != nil {
			return err
		}
		seq++
		if _, err := stmt.ExecContext(ctx, rec.Chunk.ID, rec.Chunk.SourceID, rec.Chunk.Text,
			rec.Chunk.Position, chunkMD, recMD, float32SliceToBytes(rec.Vector), dim,
			memory.Norm(rec.Vector), seq); err != nil {
			return fmt.Errorf("saving vector: %w", err)
		}
	}
	return nil
}

// Query returns up to k records nearest to vector, nearest first.
// Ties keep insertion order.
func (s *vectorStore) Query(ctx context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, source_id, content, position, chunk_metadata, metadata, embedding, dims, norm
		FROM vectors ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	qNorm := memory.Norm(vector)
	hits := []driven.VectorHit{}
	for rows.Next() {
		var (
			rec            driven.VectorRecord
			chunkMD, recMD string
			blob           []byte
			dims           int
			norm           float64
		)
		if err := rows.Scan(&rec.Chunk.ID, &rec.Chunk.SourceID, &rec.Chunk.Text, &rec.Chunk.Position,
			&chunkMD, &recMD, &blob, &dims, &norm); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		if dims != len(vector) {
			return nil, fmt.Errorf("%w: query has %d, want %d", domain.ErrDimensionMismatch, len(vector), dims)
		}
		if rec.Chunk.Metadata, err = unmarshalMetadata(chunkMD); err != nil {
			return nil, err
		}
		if rec.Metadata, err = unmarshalMetadata(recMD); err != nil {
			return nil, err
		}
		rec.Vector = bytesToFloat32Slice(blob)
		rec.Chunk.Embedding = rec.Vector
		hits = append(hits, driven.VectorHit{
			Record:   rec,
			Distance: memory.CosineDistance(vector, qNorm, rec.Vector, norm),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
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
func (s *vectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// DeleteSource removes every vector cut from sourceID.
func (s *vectorStore) DeleteSource(ctx context.Context, sourceID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM vectors WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	return nil
}

// DeleteAll removes every stored vector.
func (s *vectorStore) DeleteAll(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM vectors"); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the connection.
func (s *vectorStore) Close() error {
	return nil
}

// storedDimension returns the dimension of stored vectors, or zero when the
// table is empty.
func storedDimension(ctx context.Context, tx *sql.Tx) (int, error) {
	var dim int
	err := tx.QueryRowContext(ctx, "SELECT dims FROM vectors LIMIT 1").Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimension: %w", err)
	}
	return dim, nil
}
