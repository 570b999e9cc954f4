// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady       State = "ready"
	StateResearching State = "researching"
	StateError       State = "error"
	StateHelp        State = "help"
	StateAnswered    State = "answered"
)

// Bar displays application status and keybinding hints.
type Bar struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	state         State
	message       string
	round         int
	stage         domain.SessionState
	evidenceCount int
	width         int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// Bar is mostly passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateResearching:
		if s.stage != "" {
			return s.styles.Stage.Render(fmt.Sprintf("Round %d: %s...", s.round, strings.ToLower(string(s.stage))))
		}
		return s.styles.Muted.Render("Researching...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateHelp:
		return s.styles.Normal.Render("Help")
	case StateAnswered:
		text := fmt.Sprintf("%d evidence", s.evidenceCount)
		if s.round > 0 {
			text = fmt.Sprintf("%d %s, %s", s.round, plural(s.round, "round"), text)
		}
		if s.message != "" {
			text += "  " + s.message
		}
		return s.styles.Normal.Render(text)
	case StateReady:
		if s.message != "" {
			return s.styles.Muted.Render(s.message)
		}
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateAnswered {
		bindings = s.keymap.AnswerHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetStage records the orchestrator stage shown while researching.
func (s *Bar) SetStage(round int, stage domain.SessionState) {
	s.round = round
	s.stage = stage
}

// Stage returns the last reported stage.
func (s *Bar) Stage() (int, domain.SessionState) {
	return s.round, s.stage
}

// SetEvidenceCount sets the evidence count shown after an answer.
func (s *Bar) SetEvidenceCount(count int) {
	s.evidenceCount = count
}

// EvidenceCount returns the current evidence count.
func (s *Bar) EvidenceCount() int {
	return s.evidenceCount
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.round = 0
	s.stage = ""
	s.evidenceCount = 0
}
