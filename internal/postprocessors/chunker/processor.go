// Package chunker provides a sentence-packing text chunking processor.
//
// Text is split on sentence boundaries and consecutive sentences are packed
// greedily into chunks of at most the target size (in characters). A
// sentence is never split: one longer than the target becomes its own chunk.
// Chunking is a pure function of its input, so the same text and target
// always yield the same chunk sequence, IDs included.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default target number of characters per chunk.
const DefaultChunkSize = 500

// chunkNamespace scopes the name-based chunk UUIDs.
var chunkNamespace = uuid.MustParse("6f1c8b52-3d7e-4a49-9b0e-2c5d1e7a4f90")

// Split chunks text with no source attribution.
func Split(text string, targetSize int) []domain.Chunk {
	return SplitSource(text, "", targetSize)
}

// SplitSource chunks text cut from the document sourceID.
// A non-positive targetSize uses DefaultChunkSize.
// Empty or whitespace-only text yields an empty slice.
func SplitSource(text, sourceID string, targetSize int) []domain.Chunk {
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}

	texts := Pack(SplitSentences(text), targetSize)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:       ChunkID(sourceID, i, t),
			SourceID: sourceID,
			Text:     t,
			Position: i,
			Metadata: make(map[string]any),
		})
	}
	return chunks
}

// Pack greedily joins sentences with single spaces while the result stays
// within targetSize runes.
func Pack(sentences []string, targetSize int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0

	for _, s := range sentences {
		sLen := utf8.RuneCountInString(s)
		if curLen > 0 && curLen+1+sLen > targetSize {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(s)
		curLen += sLen
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}

// ChunkID derives a stable chunk identifier.
func ChunkID(sourceID string, position int, text string) string {
	name := fmt.Sprintf("%s\x00%d\x00%s", sourceID, position, text)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// Processor splits document content into sentence-packed chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured target chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	return SplitSource(doc.Content, doc.ID, p.chunkSize), nil
}
