package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document. The original CreatedAt is kept
// on update.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	metadataJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, uri, title, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uri = excluded.uri,
			title = excluded.title,
			content = excluded.content,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.URI, doc.Title, doc.Content, metadataJSON, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// SaveChunks replaces the chunks of every document named by the batch.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cleared := make(map[string]bool)
	for i := range chunks {
		docID := chunks[i].SourceID
		if cleared[docID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", docID); err != nil {
			return fmt.Errorf("clearing chunks: %w", err)
		}
		cleared[docID] = true
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			content = excluded.content,
			position = excluded.position,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunk := &chunks[i]
		metadataJSON, err := marshalMetadata(chunk.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.SourceID, chunk.Text,
			chunk.Position, metadataJSON); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, uri, title, content, metadata, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var metadataJSON string
	if err := row.Scan(&doc.ID, &doc.URI, &doc.Title, &doc.Content,
		&metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	md, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	doc.Metadata = md
	return &doc, nil
}

// GetChunks retrieves all chunks for a document, ordered by position.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, content, position, metadata
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, content, position, metadata
		FROM chunks WHERE id = ?
	`, id)

	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return chunk, err
}

// DeleteDocument removes a document and its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ListDocuments returns a summary of every document, oldest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.uri, d.created_at, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id
		ORDER BY d.created_at, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.DocumentSummary{}
	for rows.Next() {
		var d domain.DocumentSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.URI, &d.CreatedAt, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Clear removes all documents and chunks.
func (s *documentStore) Clear(ctx context.Context) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return tx.Commit()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanChunk scans a chunk row. sql.ErrNoRows is returned unwrapped.
func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var metadataJSON string

	if err := row.Scan(&chunk.ID, &chunk.SourceID, &chunk.Text,
		&chunk.Position, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	md, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	chunk.Metadata = md
	return &chunk, nil
}
