// Package markdown provides a Normaliser for Markdown documents.
package markdown

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts a markdown document to plain text.
// Pipe tables are collected into Tables and image references into Images.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	rawContent := string(raw.Content)

	metadata := copyMetadata(raw.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	metadata["mime_type"] = raw.MIMEType
	metadata["format"] = "markdown"

	return &domain.ParsedDocument{
		Title:    extractMarkdownTitle(rawContent, raw.URI),
		Text:     stripMarkdown(rawContent),
		Tables:   extractTables(rawContent),
		Images:   extractImages(rawContent),
		Metadata: metadata,
	}, nil
}

// Pre-compiled regular expressions for markdown parsing.
var (
	codeBlock     = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode    = regexp.MustCompile("`[^`]+`")
	imageRef      = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)[^)]*\)`)
	linkRef       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote    = regexp.MustCompile(`(?m)^>\s*`)
	horizontal    = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// extractMarkdownTitle extracts a title from the markdown content or falls back to filename.
func extractMarkdownTitle(content, uri string) string {
	// Try to find first H1 heading (# Title)
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	// Fall back to filename
	filename := filepath.Base(uri)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// extractTables returns each run of consecutive pipe-table lines as one block.
func extractTables(content string) []string {
	var tables []string
	var block []string

	flush := func() {
		if len(block) >= 2 {
			tables = append(tables, strings.Join(block, "\n"))
		}
		block = block[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") {
			block = append(block, trimmed)
			continue
		}
		flush()
	}
	flush()

	return tables
}

// extractImages returns the targets of ![alt](target) references in order.
func extractImages(content string) []string {
	var images []string
	for _, m := range imageRef.FindAllStringSubmatch(content, -1) {
		images = append(images, m[1])
	}
	return images
}

// stripMarkdown removes common markdown formatting for plain text content.
// This is a simplified implementation that handles common cases.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = imageRef.ReplaceAllString(content, "")

	// Convert links [text](url) to just text
	content = linkRef.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")

	// Remove bold/italic markers
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	content = blockquote.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
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
