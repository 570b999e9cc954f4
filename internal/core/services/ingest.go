package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// Ingestion limits.
const (
	// MaxFileSize is the largest file IngestFile accepts.
	MaxFileSize = 200 << 20

	defaultIngestWorkers  = 2
	defaultIngestAttempts = 3
	defaultIngestBackoff  = time.Second
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService parses, chunks, stores and indexes documents.
type IngestService struct {
	index    *EvidenceIndex
	docs     driven.DocumentStore
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline

	workers  int
	attempts int
	backoff  time.Duration
	idFunc   func(path string) string
}

// NewIngestService creates an ingest service. The document store may be
// nil, in which case documents are indexed but not listed.
func NewIngestService(
	index *EvidenceIndex,
	docs driven.DocumentStore,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	settings domain.IngestSettings,
) *IngestService {
	s := &IngestService{
		index:    index,
		docs:     docs,
		registry: registry,
		pipeline: pipeline,
		workers:  settings.Workers,
		attempts: settings.MaxAttempts,
		backoff:  defaultIngestBackoff,
	}
	if s.workers <= 0 {
		s.workers = defaultIngestWorkers
	}
	if s.attempts <= 0 {
		s.attempts = defaultIngestAttempts
	}
	return s
}

// SetBackoff sets the initial delay between batch attempts.
func (s *IngestService) SetBackoff(d time.Duration) {
	s.backoff = d
}

// SetDocumentIDFunc sets how batch ingestion names documents. A stable
// function makes re-indexing a file replace its earlier evidence. By
// default every batch document gets a fresh NewDocumentID.
func (s *IngestService) SetDocumentIDFunc(fn func(path string) string) {
	s.idFunc = fn
}

// ProcessDocument chunks rawText and indexes it under sourceID.
func (s *IngestService) ProcessDocument(ctx context.Context, rawText, sourceID string) (*domain.IndexSummary, error) {
	if strings.TrimSpace(sourceID) == "" {
		return nil, fmt.Errorf("%w: empty source id", domain.ErrInvalidInput)
	}
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        sourceID,
		Content:   rawText,
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.ingest(ctx, doc)
}

// IngestFile parses the file at path and indexes its text.
// Only the parsed text is indexed; tables and images are counted in metadata.
func (s *IngestService) IngestFile(ctx context.Context, path, docID string) (*domain.IndexSummary, error) {
	mime := s.registry.DetectMIMEType(path)
	if mime == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", domain.ErrInvalidInput, path, info.Size(), MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	parsed, err := s.registry.Normalise(ctx, &domain.RawDocument{
		URI:      path,
		MIMEType: mime,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if docID == "" {
		docID = s.documentID(path)
	}
	metadata := make(map[string]any, len(parsed.Metadata)+4)
	for k, v := range parsed.Metadata {
		metadata[k] = v
	}
	metadata["mime_type"] = mime
	metadata["file_name"] = filepath.Base(path)
	metadata["tables"] = len(parsed.Tables)
	metadata["images"] = len(parsed.Images)

	now := time.Now().UTC()
	return s.ingest(ctx, &domain.Document{
		ID:        docID,
		URI:       path,
		Title:     parsed.Title,
		Content:   parsed.Text,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// IngestBatch ingests paths on a bounded pool. Each file is retried with
// exponential backoff; the returned error joins every final failure.
func (s *IngestService) IngestBatch(ctx context.Context, paths []string) (*driving.BatchReport, error) {
	report := &driving.BatchReport{
		Succeeded: []domain.IndexSummary{},
		Failed:    make(map[string]error),
		Attempts:  make(map[string]int),
	}
	if len(paths) == 0 {
		return report, nil
	}

	logger.Section("Batch Ingest")
	logger.Debug("Ingesting %d files with %d workers", len(paths), s.workers)

	summaries := make([]*domain.IndexSummary, len(paths))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(s.workers)
	for i, path := range paths {
		p.Go(func() {
			summary, attempts, err := s.ingestWithRetry(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			report.Attempts[path] = attempts
			if err != nil {
				report.Failed[path] = err
				logger.Warn("Failed to ingest %s after %d attempts: %v", path, attempts, err)
				return
			}
			summaries[i] = summary
		})
	}
	p.Wait()

	var errs []error
	for i, path := range paths {
		if summaries[i] != nil {
			report.Succeeded = append(report.Succeeded, *summaries[i])
			continue
		}
		if err, ok := report.Failed[path]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return report, errors.Join(errs...)
}

func (s *IngestService) ingestWithRetry(ctx context.Context, path string) (*domain.IndexSummary, int, error) {
	docID := s.documentID(path)

	delay := s.backoff
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		summary, err := s.IngestFile(ctx, path, docID)
		if err == nil {
			return summary, attempt, nil
		}
		lastErr = err
		if permanent(err) || attempt == s.attempts {
			return nil, attempt, err
		}
		logger.Debug("Retrying %s in %s (attempt %d): %v", path, delay, attempt, err)
		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, s.attempts, lastErr
}

// permanent reports errors that another attempt cannot fix.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrUnsupportedType) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *IngestService) documentID(path string) string {
	if s.idFunc != nil {
		return s.idFunc(path)
	}
	return NewDocumentID()
}

// ListDocuments returns every stored document.
func (s *IngestService) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	if s.docs == nil {
		return []domain.DocumentSummary{}, nil
	}
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return docs, nil
}

// DeleteDocument removes a document's evidence and its stored record.
// Deleting an unknown ID is a no-op.
func (s *IngestService) DeleteDocument(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	if err := s.index.DeleteSource(ctx, id); err != nil {
		return err
	}
	if s.docs != nil {
		if err := s.docs.DeleteDocument(ctx, id); err != nil {
			return fmt.Errorf("%w: delete document: %w", domain.ErrStoreUnavailable, err)
		}
	}
	logger.Info("Deleted %s", id)
	return nil
}

// Reset clears the vector index and the document store.
func (s *IngestService) Reset(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return err
	}
	if s.docs != nil {
		if err := s.docs.Clear(ctx); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
	}
	logger.Info("Cleared all indexed content")
	return nil
}

func (s *IngestService) ingest(ctx context.Context, doc *domain.Document) (*domain.IndexSummary, error) {
	if !s.index.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.ID, err)
	}

	// Index first so a failed embedding leaves no listed document behind.
	if err := s.index.Replace(ctx, doc.ID, chunks, map[string]any{"document_id": doc.ID}); err != nil {
		return nil, err
	}

	if s.docs != nil {
		if err := s.save(ctx, doc, chunks); err != nil {
			s.rollback(ctx, doc.ID)
			return nil, err
		}
	}

	logger.Info("Indexed %s: %d chunks", doc.ID, len(chunks))
	return &domain.IndexSummary{
		DocumentID:    doc.ID,
		ChunksIndexed: len(chunks),
	}, nil
}

func (s *IngestService) save(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: save document: %w", domain.ErrStoreUnavailable, err)
	}
	if err := s.docs.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("%w: save chunks: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// rollback removes a document whose evidence was indexed but whose record
// could not be saved, so nothing searchable is missing from ListDocuments.
func (s *IngestService) rollback(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.index.DeleteSource(ctx, id); err != nil {
		logger.Warn("Rollback of %s left evidence behind: %v", id, err)
	}
	if err := s.docs.DeleteDocument(ctx, id); err != nil {
		logger.Warn("Rollback of %s left a document record behind: %v", id, err)
	}
}

// NewDocumentID returns a fresh "doc_<8 hex>" identifier.
func NewDocumentID() string {
	return "doc_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
