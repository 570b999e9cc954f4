package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/views/research"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/views/settings"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	menuView      *menu.View
	researchView  *research.View
	documentsView *documents.View
	settingsView  *settings.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		menuView:      menu.NewView(s),
		researchView:  research.NewView(s, nil, ports.Research),
		documentsView: documents.NewView(s, ports.Ingest),
		settingsView:  settings.NewView(s, ports.Settings),
		currentView:   messages.ViewMenu, // Start with menu
	}, nil
}

// WithContext sets the context for the app and the views that call services.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.researchView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("sercha-research"),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.forward(msg)

	// Research progress and results arrive even after the user navigates away.
	case messages.StageChanged:
		a.researchView, cmd = a.researchView.Update(msg)
		return a, cmd

	case messages.ResearchCompleted:
		a.researchView, cmd = a.researchView.Update(msg)
		a.err = a.researchView.Err()
		return a, cmd

	case messages.DocumentsLoaded, messages.IndexReset, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.err = a.documentsView.Err()
		return a, cmd

	case messages.SettingsLoaded, messages.SettingsSaved:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		// Initialise views when switching to them
		switch msg.View {
		case messages.ViewResearch:
			// Keep a finished answer so returning from the menu shows it.
			return a, a.researchView.Init()
		case messages.ViewDocuments:
			return a, a.documentsView.Load()
		case messages.ViewSettings:
			a.settingsView.Reset()
			return a, a.settingsView.Init()
		case messages.ViewMenu, messages.ViewHelp:
			// No initialisation needed
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages (cursor blink and similar) to the active view
	return a, a.forward(msg)
}

// forward hands msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewResearch:
		a.researchView, cmd = a.researchView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
		// Esc from help goes to menu
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
			a.currentView = messages.ViewMenu
		}
	}
	return cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewResearch:
		return a.researchView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewSettings:
		return a.settingsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back to Menu
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Research:
  (type)      Enter a question
  tab         Switch mode (research, quick, deep)
  enter       Ask

Answer:
  j/k, ↑/↓    Navigate evidence
  enter       Expand or collapse evidence
  t           Toggle round trace
  n           New question
  esc         Back to Menu

Documents:
  r           Reload
  x           Clear the index

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Question returns the last submitted question.
func (a *App) Question() string {
	return a.researchView.Question()
}

// Result returns the last research result, if any.
func (a *App) Result() *domain.ResearchResult {
	return a.researchView.Result()
}

// Evidence returns the evidence shown for the last answer.
func (a *App) Evidence() []domain.EvidenceItem {
	return a.researchView.Evidence()
}

// SelectedIndex returns the currently selected evidence index.
func (a *App) SelectedIndex() int {
	return a.researchView.SelectedIndex()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions and resizes every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.researchView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
}
