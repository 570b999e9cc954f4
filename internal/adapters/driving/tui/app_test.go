package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

func newTestPorts() *Ports {
	return &Ports{
		Research: &MockResearchService{},
		Ingest: &MockIngestService{Documents: []domain.DocumentSummary{
			{ID: "doc_1", Title: "Attention", ChunkCount: 4},
		}},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(newTestPorts())
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app
}

// goToResearchView navigates the app from menu to research view for testing.
func goToResearchView(app *App) {
	app.Update(messages.ViewChanged{View: messages.ViewResearch})
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(newTestPorts())

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Ingest: &MockIngestService{}})

	assert.ErrorIs(t, err, ErrMissingResearchService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
}

func TestApp_Init(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	assert.NotNil(t, app.Init())
}

func TestApp_View_NotReady(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Sercha Research")
}

func TestApp_Update_CtrlC(t *testing.T) {
	app := newTestApp(t)
	goToResearchView(app)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_Update_QuitMessage(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_Menu_SelectsResearch(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewResearch, app.CurrentView())
	assert.Contains(t, app.View(), "Ask a question")
}

func TestApp_Research_AskAndAnswer(t *testing.T) {
	answered := &domain.ResearchResult{
		Question: "why?",
		Verdict:  domain.ReviewVerdict{FinalAnswer: "Because.", FinalConfidence: 0.9},
		Rounds:   1,
		Evidence: []domain.EvidenceBundle{domain.NewEvidenceBundle(domain.SubTask{Text: "why?"}, []domain.EvidenceItem{
			{Chunk: domain.Chunk{ID: "c1", SourceID: "doc_1", Text: "evidence"}, Score: 0.8},
		})},
	}
	ports := newTestPorts()
	ports.Research = &MockResearchService{
		AnswerFunc: func(_ context.Context, q string, opts domain.AnswerOptions) (*domain.ResearchResult, error) {
			assert.Equal(t, "why?", q)
			assert.True(t, opts.RequireCitations)
			return answered, nil
		},
	}
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	goToResearchView(app)

	for _, r := range "why?" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	// The mock does not report progress, so the command is the run itself.
	app.Update(cmd())

	assert.Equal(t, "why?", app.Question())
	assert.Equal(t, answered, app.Result())
	assert.Len(t, app.Evidence(), 1)
	assert.Equal(t, 0, app.SelectedIndex())
	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "Because.")
}

func TestApp_Research_ResultArrivesAfterLeaving(t *testing.T) {
	app := newTestApp(t)
	goToResearchView(app)
	app.Update(messages.ViewChanged{View: messages.ViewMenu})

	app.Update(messages.ResearchCompleted{Question: "q", Err: errors.New("llm down")})

	assert.EqualError(t, app.Err(), "llm down")
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_Research_EscReturnsToMenu(t *testing.T) {
	app := newTestApp(t)
	goToResearchView(app)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_Documents_LoadOnEnter(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDocuments})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Contains(t, app.View(), "Attention")
	assert.Contains(t, app.View(), "Indexed Documents (1)")
}

func TestApp_Documents_Reset(t *testing.T) {
	app := newTestApp(t)
	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDocuments})
	app.Update(cmd())

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	require.NotNil(t, cmd)

	_, cmd = app.Update(cmd()) // IndexReset triggers a reload
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Contains(t, app.View(), "No documents indexed")
}

func TestApp_Documents_Delete(t *testing.T) {
	app := newTestApp(t)
	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDocuments})
	app.Update(cmd())

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	assert.Contains(t, app.View(), "Remove doc_1 (4 chunks)")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	require.NotNil(t, cmd)

	_, cmd = app.Update(cmd()) // DocumentDeleted triggers a reload
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Contains(t, app.View(), "No documents indexed")
}

func TestApp_Settings_NoService(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewSettings})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewSettings, app.CurrentView())
	assert.Contains(t, app.View(), "settings service not available")
}

func TestApp_Help(t *testing.T) {
	app := newTestApp(t)
	app.Update(messages.ViewChanged{View: messages.ViewHelp})

	view := app.View()
	assert.Contains(t, view, "Toggle round trace")
	assert.Contains(t, view, "Switch mode")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t)
	goToResearchView(app)

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
	assert.Contains(t, app.View(), "boom")
}
