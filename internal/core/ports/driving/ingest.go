package driving

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// IngestService turns source documents into indexed evidence.
type IngestService interface {
	// ProcessDocument chunks raw text and indexes it under sourceID.
	ProcessDocument(ctx context.Context, rawText, sourceID string) (*domain.IndexSummary, error)

	// IngestFile parses a file and indexes it. An empty docID is derived
	// from the path when the service has an ID function, else generated.
	IngestFile(ctx context.Context, path, docID string) (*domain.IndexSummary, error)

	// IngestBatch ingests several files on a bounded worker pool.
	// One file's failure does not abort the others.
	IngestBatch(ctx context.Context, paths []string) (*BatchReport, error)

	// ListDocuments returns every indexed document with its chunk count.
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)

	// DeleteDocument removes one document's evidence and record.
	DeleteDocument(ctx context.Context, id string) error

	// Reset clears all indexed content.
	Reset(ctx context.Context) error
}

// BatchReport summarises a batch ingestion.
type BatchReport struct {
	// Succeeded holds one summary per ingested file.
	Succeeded []domain.IndexSummary

	// Failed maps file path to the final error.
	Failed map[string]error

	// Attempts maps file path to the number of attempts made.
	Attempts map[string]int
}

// WatchEvent describes one watched file change and its ingestion outcome.
type WatchEvent struct {
	// Path is the changed file.
	Path string

	// Change is the kind of change.
	Change domain.ChangeType

	// Summary is set when the file was ingested.
	Summary *domain.IndexSummary

	// Err is set when ingestion or deletion failed.
	Err error
}

// Watcher re-ingests files as they change in a directory and drops the
// evidence of files that are removed or renamed away.
type Watcher interface {
	// Watch blocks until ctx is cancelled, calling onEvent per handled change.
	Watch(ctx context.Context, dir string, onEvent func(WatchEvent)) error
}
