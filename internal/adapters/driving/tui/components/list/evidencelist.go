// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// EvidenceList displays evidence items in a navigable list.
// Items are labelled "Evidence N" in the order they were placed in context.
type EvidenceList struct {
	items    []domain.EvidenceItem
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewEvidenceList creates a new evidence list component.
func NewEvidenceList(s *styles.Styles) *EvidenceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &EvidenceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (r *EvidenceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *EvidenceList) Update(msg tea.Msg) (*EvidenceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the evidence list.
func (r *EvidenceList) View() string {
	if len(r.items) == 0 {
		return r.styles.Muted.Render("No evidence")
	}

	if r.expanded {
		return r.renderExpanded()
	}

	lines := make([]string, 0, len(r.items)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Evidence (%d)", len(r.items))), "")

	// Each item takes two lines
	visibleCount := (r.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.items) {
		end = len(r.items)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderItem(i, &r.items[i]))
	}

	return strings.Join(lines, "\n")
}

func (r *EvidenceList) renderItem(index int, item *domain.EvidenceItem) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	label := fmt.Sprintf("%sEvidence %d  %s", indicator, index+1, item.Chunk.SourceID)
	score := fmt.Sprintf("%.3f", item.Score)

	var head string
	if index == r.selected {
		head = r.styles.Selected.Render(label+"  ") + r.styles.Selected.Render(score)
	} else {
		head = r.styles.Normal.Render(label+"  ") + r.styles.Muted.Render(score)
	}

	preview := Truncate(strings.Join(strings.Fields(item.Chunk.Text), " "), r.width-6)
	return head + "\n" + r.styles.Muted.Render("    "+preview)
}

func (r *EvidenceList) renderExpanded() string {
	item := r.items[r.selected]

	var b strings.Builder
	b.WriteString(r.styles.Subtitle.Render(fmt.Sprintf("Evidence %d of %d", r.selected+1, len(r.items))))
	b.WriteString("\n")
	b.WriteString(r.styles.Muted.Render(fmt.Sprintf("source %s  chunk %s  score %.3f",
		item.Chunk.SourceID, item.Chunk.ID, item.Score)))
	b.WriteString("\n\n")
	b.WriteString(r.styles.Normal.Width(r.width - 2).Render(item.Chunk.Text))
	return b.String()
}

// Truncate shortens s to at most n runes, ending with "..." when cut.
func Truncate(s string, n int) string {
	if n < 20 {
		n = 20
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetItems replaces the list contents.
func (r *EvidenceList) SetItems(items []domain.EvidenceItem) {
	r.items = items
	r.selected = 0
	r.expanded = false
}

// SetBundles flattens bundles, dropping chunks already listed.
func (r *EvidenceList) SetBundles(bundles []domain.EvidenceBundle) {
	seen := make(map[string]bool)
	var items []domain.EvidenceItem
	for _, b := range bundles {
		for _, item := range b.Evidence {
			if seen[item.Chunk.ID] {
				continue
			}
			seen[item.Chunk.ID] = true
			items = append(items, item)
		}
	}
	r.SetItems(items)
}

// Items returns the current items.
func (r *EvidenceList) Items() []domain.EvidenceItem {
	return r.items
}

// Selected returns the index of the selected item.
func (r *EvidenceList) Selected() int {
	return r.selected
}

// SelectedItem returns the currently selected item, or nil if none.
func (r *EvidenceList) SelectedItem() *domain.EvidenceItem {
	if len(r.items) == 0 || r.selected < 0 || r.selected >= len(r.items) {
		return nil
	}
	return &r.items[r.selected]
}

// ToggleExpanded switches between the list and the full text of the selection.
func (r *EvidenceList) ToggleExpanded() {
	if len(r.items) > 0 {
		r.expanded = !r.expanded
	}
}

// Expanded reports whether the selected item is shown in full.
func (r *EvidenceList) Expanded() bool {
	return r.expanded
}

// MoveUp moves selection up.
func (r *EvidenceList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *EvidenceList) MoveDown() {
	if r.selected < len(r.items)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *EvidenceList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of items.
func (r *EvidenceList) Count() int {
	return len(r.items)
}
