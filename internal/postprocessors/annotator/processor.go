// Package annotator stamps document provenance onto chunks.
package annotator

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

var _ driven.PostProcessor = (*Processor)(nil)

// Metadata keys written on every chunk.
const (
	KeyTitle    = "title"
	KeyURI      = "uri"
	KeyPosition = "position"
)

// Processor copies document title, URI and selected metadata into chunk metadata.
type Processor struct {
	keys []string
}

// Option configures the annotator.
type Option func(*Processor)

// WithKeys selects additional document metadata keys to copy.
func WithKeys(keys ...string) Option {
	return func(p *Processor) {
		p.keys = append(p.keys, keys...)
	}
}

// New creates an annotator.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "annotator"
}

// Process annotates chunks in place and returns them.
// Existing chunk metadata wins over document metadata.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		md := chunks[i].Metadata
		setIfAbsent(md, KeyPosition, chunks[i].Position)
		if doc.Title != "" {
			setIfAbsent(md, KeyTitle, doc.Title)
		}
		if doc.URI != "" {
			setIfAbsent(md, KeyURI, doc.URI)
		}
		for _, k := range p.keys {
			if v, ok := doc.Metadata[k]; ok {
				setIfAbsent(md, k, v)
			}
		}
	}

	return chunks, nil
}

func setIfAbsent(md map[string]any, key string, val any) {
	if _, ok := md[key]; !ok {
		md[key] = val
	}
}
