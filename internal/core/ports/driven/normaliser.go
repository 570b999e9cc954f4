package driven

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// Normaliser is a document parser for specific MIME types.
// It produces text, tables and images; the core indexes only the text.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Generic MIME normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise parses a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error)
}
