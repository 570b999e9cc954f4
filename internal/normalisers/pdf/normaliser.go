// Package pdf provides a Normaliser for PDF documents.
// Text is extracted locally; when the PDF cannot be decoded the printable
// bytes of the file are used instead.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitleLength bounds a first-line title.
const maxTitleLength = 200

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the plain text of a PDF.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, pages, err := extractText(raw.Content)
	extraction := "pdf"
	if err != nil {
		logger.Degraded("pdf", "%s: %v, using printable text", raw.URI, err)
		text = string(extractPrintableText(raw.Content))
		extraction = "printable"
	}
	text = strings.TrimSpace(text)

	metadata := copyMetadata(raw.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	metadata["mime_type"] = raw.MIMEType
	metadata["format"] = "pdf"
	metadata["extraction"] = extraction
	if pages > 0 {
		metadata["pages"] = pages
	}

	return &domain.ParsedDocument{
		Title:    extractTitle(text, raw.URI),
		Text:     text,
		Metadata: metadata,
	}, nil
}

// extractText decodes the PDF and returns its plain text and page count.
// The pdf library panics on some malformed inputs; those become errors.
func extractText(data []byte) (text string, pages int, err error) {
	if len(data) == 0 {
		return "", 0, nil
	}
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("extract text: %w", err)
	}

	out, err := io.ReadAll(reader)
	if err != nil {
		return "", 0, fmt.Errorf("read text: %w", err)
	}
	if len(out) == 0 {
		return "", 0, fmt.Errorf("no text layer")
	}

	return string(out), r.NumPage(), nil
}

// extractPrintableText keeps printable runes and whitespace from arbitrary bytes.
func extractPrintableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			if isPrintableASCII(in[0]) {
				out.WriteByte(in[0])
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if isPrintableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}

func isPrintableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}

func isPrintableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return r >= 32 && r != 127 && r <= utf8.MaxRune
}

// extractTitle uses the first short non-empty line, falling back to the filename.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && utf8.RuneCountInString(line) <= maxTitleLength {
			return line
		}
	}

	filename := filepath.Base(uri)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
