package list

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

func item(id, source, text string, score float64) domain.EvidenceItem {
	return domain.EvidenceItem{
		Chunk: domain.Chunk{ID: id, SourceID: source, Text: text},
		Score: score,
	}
}

func TestNewEvidenceList(t *testing.T) {
	l := NewEvidenceList(styles.DefaultStyles())

	require.NotNil(t, l)
	assert.Equal(t, 0, l.Count())
	assert.Nil(t, l.SelectedItem())
}

func TestNewEvidenceList_NilStyles(t *testing.T) {
	l := NewEvidenceList(nil)

	require.NotNil(t, l)
	assert.NotNil(t, l.styles)
}

func TestEvidenceList_View_Empty(t *testing.T) {
	l := NewEvidenceList(nil)

	assert.Contains(t, l.View(), "No evidence")
}

func TestEvidenceList_View_Items(t *testing.T) {
	l := NewEvidenceList(nil)
	l.SetItems([]domain.EvidenceItem{
		item("c1", "doc_a", "Attention   scales\nquadratically.", 0.91),
		item("c2", "doc_b", "Sparse attention helps.", 0.42),
	})

	view := l.View()

	assert.Contains(t, view, "Evidence (2)")
	assert.Contains(t, view, "Evidence 1")
	assert.Contains(t, view, "doc_a")
	assert.Contains(t, view, "0.910")
	assert.Contains(t, view, "Attention scales quadratically.")
}

func TestEvidenceList_Navigation(t *testing.T) {
	l := NewEvidenceList(nil)
	l.SetItems([]domain.EvidenceItem{
		item("c1", "a", "one", 0.9),
		item("c2", "b", "two", 0.8),
		item("c3", "c", "three", 0.7),
	})

	l.MoveDown()
	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 2, l.Selected())

	// Bounded at the end
	l.MoveDown()
	assert.Equal(t, 2, l.Selected())

	l.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, l.Selected())
	assert.Equal(t, "c2", l.SelectedItem().Chunk.ID)

	l.MoveUp()
	l.MoveUp()
	assert.Equal(t, 0, l.Selected())
}

func TestEvidenceList_SetBundles_Dedupes(t *testing.T) {
	l := NewEvidenceList(nil)
	l.SetBundles([]domain.EvidenceBundle{
		domain.NewEvidenceBundle(domain.SubTask{Text: "a"}, []domain.EvidenceItem{
			item("c1", "a", "one", 0.9),
			item("c2", "a", "two", 0.8),
		}),
		domain.NewEvidenceBundle(domain.SubTask{Text: "b"}, []domain.EvidenceItem{
			item("c2", "a", "two", 0.8),
			item("c3", "b", "three", 0.6),
		}),
	})

	require.Equal(t, 3, l.Count())
	ids := []string{l.Items()[0].Chunk.ID, l.Items()[1].Chunk.ID, l.Items()[2].Chunk.ID}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
}

func TestEvidenceList_Expanded(t *testing.T) {
	l := NewEvidenceList(nil)

	// No items: toggling does nothing
	l.ToggleExpanded()
	assert.False(t, l.Expanded())

	l.SetItems([]domain.EvidenceItem{item("c1", "doc_a", "Full chunk text here.", 0.5)})
	l.ToggleExpanded()
	require.True(t, l.Expanded())

	view := l.View()
	assert.Contains(t, view, "Evidence 1 of 1")
	assert.Contains(t, view, "chunk c1")
	assert.Contains(t, view, "Full chunk text here.")

	// New items collapse the view
	l.SetItems([]domain.EvidenceItem{item("c2", "doc_b", "x", 0.1)})
	assert.False(t, l.Expanded())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "hello", 30, "hello"},
		{"cut", strings.Repeat("a", 40), 25, strings.Repeat("a", 22) + "..."},
		{"minimum width", strings.Repeat("b", 30), 5, strings.Repeat("b", 17) + "..."},
		{"multibyte", strings.Repeat("é", 30), 20, strings.Repeat("é", 17) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}
