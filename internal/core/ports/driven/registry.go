package driven

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document.
// It maintains a priority-ordered list of normalisers and dispatches
// on MIME type.
type NormaliserRegistry interface {
	// Normalise parses a raw document using the best matching normaliser.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string

	// DetectMIMEType maps a file path to a supported MIME type.
	// Returns "" when the extension is not recognised.
	DetectMIMEType(path string) string
}
