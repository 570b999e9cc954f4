package domain

// RawDocument represents opaque bytes read from a file or other source.
// It is the parser's input.
type RawDocument struct {
	// URI is the original location (file path, URL, etc).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains caller-supplied key-value pairs.
	Metadata map[string]any
}

// ParsedDocument is the document parser's output.
// Only Text is indexed; Tables and Images are kept for display.
type ParsedDocument struct {
	// Title is the extracted or derived document title.
	Title string

	// Text is the plain text content.
	Text string

	// Tables holds table blocks found in the source, as text.
	Tables []string

	// Images holds image references (paths or URLs) found in the source.
	Images []string

	// Metadata contains format-specific key-value pairs.
	Metadata map[string]any
}

// ChangeType represents the type of file change seen by a watcher.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// String returns the string representation.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
