package domain

import "time"

// Document represents an ingested source document.
// Its ID is the source_id carried by every chunk cut from it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full parsed text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// Chunk is a bounded segment of document text used as the unit of
// indexing and retrieval. Chunks are immutable once created.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// SourceID links to the Document the chunk was cut from.
	SourceID string

	// Text is the chunk content.
	Text string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector produced for this chunk, once indexed.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// DocumentSummary is a listing entry for an indexed document.
type DocumentSummary struct {
	// ID is the document identifier.
	ID string

	// Title is the document title.
	Title string

	// URI is the original location.
	URI string

	// ChunkCount is the number of chunks stored for the document.
	ChunkCount int

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time
}

// IndexSummary reports the outcome of processing one document.
type IndexSummary struct {
	// DocumentID is the document that was indexed.
	DocumentID string

	// ChunksIndexed is the number of chunks embedded and stored.
	ChunksIndexed int
}
