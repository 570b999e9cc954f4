// Package documents provides the indexed documents view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

// ErrNoIngestService is reported when the view has no ingest service.
var ErrNoIngestService = errors.New("ingest service not available")

// confirmAction is the destructive action awaiting a yes/no answer.
type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmReset
	confirmDelete
)

// View is the documents list view.
type View struct {
	styles        *styles.Styles
	ingestService driving.IngestService
	ctx           context.Context

	documents    []domain.DocumentSummary
	selected     int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
	confirm      confirmAction
	scrollOffset int
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, ingestService driving.IngestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:        s,
		ingestService: ingestService,
		ctx:           context.Background(),
		documents:     []domain.DocumentSummary{},
		width:         80,
		height:        24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load marks the view as loading and returns the command that fetches documents.
func (v *View) Load() tea.Cmd {
	v.loading = true
	v.confirm = confirmNone
	return v.loadDocuments()
}

// loadDocuments returns a command that lists indexed documents.
func (v *View) loadDocuments() tea.Cmd {
	svc, ctx := v.ingestService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: ErrNoIngestService}
		}
		docs, err := svc.ListDocuments(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// resetIndex returns a command that clears the index.
func (v *View) resetIndex() tea.Cmd {
	svc, ctx := v.ingestService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.IndexReset{Err: ErrNoIngestService}
		}
		return messages.IndexReset{Err: svc.Reset(ctx)}
	}
}

// deleteDocument returns a command that removes one document.
func (v *View) deleteDocument(id string) tea.Cmd {
	svc, ctx := v.ingestService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentDeleted{ID: id, Err: ErrNoIngestService}
		}
		return messages.DocumentDeleted{ID: id, Err: svc.DeleteDocument(ctx, id)}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirm != confirmNone {
			return v.handleConfirmKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.documents = msg.Documents
		v.err = nil
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.IndexReset:
		if msg.Err != nil {
			v.loading = false
			v.err = msg.Err
			return v, nil
		}
		// Reload so the view reflects the store, not an assumption.
		return v, v.Load()

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.loading = false
			v.err = fmt.Errorf("delete %s: %w", msg.ID, msg.Err)
			return v, nil
		}
		return v, v.Load()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses in list mode.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "r":
		return v, v.Load()
	case "x":
		if len(v.documents) > 0 {
			v.confirm = confirmReset
		}
	case "d":
		if v.SelectedDocument() != nil {
			v.confirm = confirmDelete
		}
	}

	return v, nil
}

// handleConfirmKeyMsg handles the reset and delete confirmation prompts.
func (v *View) handleConfirmKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		action := v.confirm
		v.confirm = confirmNone
		v.loading = true
		if action == confirmDelete {
			doc := v.SelectedDocument()
			if doc == nil {
				v.loading = false
				return v, nil
			}
			return v, v.deleteDocument(doc.ID)
		}
		return v, v.resetIndex()
	case "n", "N", "esc":
		v.confirm = confirmNone
	}
	return v, nil
}

// adjustScroll adjusts the scroll offset to keep the selected item visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of documents that fit on screen.
// Each document takes two lines.
func (v *View) visibleItemCount() int {
	// Reserve lines for title, totals, help, and padding
	available := (v.height - 8) / 2
	if available < 1 {
		available = 1
	}
	return available
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Indexed Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if len(v.documents) == 0 {
		b.WriteString(v.styles.Muted.Render("No documents indexed. Run 'sercha-research index <path>' to add some."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	switch v.confirm {
	case confirmReset:
		b.WriteString(v.styles.Warning.Render(
			fmt.Sprintf("Remove all %d documents from the index? [y/N]", len(v.documents))))
		b.WriteString("\n")
		return b.String()
	case confirmDelete:
		doc := v.SelectedDocument()
		b.WriteString(v.styles.Warning.Render(
			fmt.Sprintf("Remove %s (%d chunks) from the index? [y/N]", doc.ID, doc.ChunkCount)))
		b.WriteString("\n")
		return b.String()
	}

	visibleItems := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visibleItems; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i]))
		b.WriteString("\n")
	}

	if len(v.documents) > visibleItems {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleItems, len(v.documents)),
			len(v.documents))))
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%d chunks in total", v.TotalChunks())))
	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderDocument renders a document as a title line and a detail line.
func (v *View) renderDocument(index int, doc *domain.DocumentSummary) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	maxTitleLen := max(v.width-6, 10)
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen-3] + "..."
	}

	uri := doc.URI
	maxURILen := max(v.width/2, 10)
	if len(uri) > maxURILen {
		uri = "..." + uri[len(uri)-maxURILen+3:]
	}

	detail := fmt.Sprintf("    %s  %d chunks", doc.ID, doc.ChunkCount)
	if !doc.CreatedAt.IsZero() {
		detail += "  " + doc.CreatedAt.Local().Format(time.DateTime)
	}
	if uri != "" {
		detail += "  " + uri
	}

	if index == v.selected {
		return v.styles.Selected.Render(indicator+title) + "\n" + v.styles.Muted.Render(detail)
	}
	return v.styles.Normal.Render(indicator+title) + "\n" + v.styles.Muted.Render(detail)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [r] reload  [d] delete  [x] clear index  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.DocumentSummary {
	return v.documents
}

// TotalChunks sums chunk counts across listed documents.
func (v *View) TotalChunks() int {
	total := 0
	for _, d := range v.documents {
		total += d.ChunkCount
	}
	return total
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document.
func (v *View) SelectedDocument() *domain.DocumentSummary {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// IsConfirming returns true while a reset or delete prompt is shown.
func (v *View) IsConfirming() bool {
	return v.confirm != confirmNone
}

// IsConfirmingDelete returns true while the delete prompt is shown.
func (v *View) IsConfirmingDelete() bool {
	return v.confirm == confirmDelete
}

// IsLoading returns true while documents are being fetched.
func (v *View) IsLoading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
