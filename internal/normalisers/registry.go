package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/normalisers/html"
	"github.com/custodia-labs/sercha-research/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-research/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-research/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extensionTypes maps file extensions to the MIME types the ingestion path accepts.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".html":     "text/html",
	".htm":      "text/html",
	".pdf":      "application/pdf",
}

// Registry dispatches documents to the highest-priority normaliser for
// their MIME type.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string][]driven.Normaliser),
	}
}

// Default returns a registry with every built-in normaliser registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(plaintext.New())
	r.Register(pdf.New())
	return r
}

// Register adds a normaliser for each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mime := range n.SupportedMIMETypes() {
		list := append(r.byType[mime], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[mime] = list
	}
}

// Normalise parses raw with the preferred normaliser for its MIME type.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	list := r.byType[baseMIME(raw.MIMEType)]
	r.mu.RUnlock()

	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, raw.MIMEType)
	}
	return list[0].Normalise(ctx, raw)
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for mime := range r.byType {
		types = append(types, mime)
	}
	sort.Strings(types)
	return types
}

// DetectMIMEType maps a file path to a MIME type by extension.
// Returns "" for extensions outside the accepted set.
func (r *Registry) DetectMIMEType(path string) string {
	return extensionTypes[strings.ToLower(filepath.Ext(path))]
}

// baseMIME strips parameters such as "; charset=utf-8".
func baseMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
