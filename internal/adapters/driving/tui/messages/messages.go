// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// Mode selects which research operation a question runs through.
type Mode int

const (
	// ModeResearch runs the iterative plan, retrieve, reason, review loop.
	ModeResearch Mode = iota
	// ModeQuick answers in one pass.
	ModeQuick
	// ModeDeep produces a multi-angle analysis report.
	ModeDeep
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeResearch:
		return "research"
	case ModeQuick:
		return "quick"
	case ModeDeep:
		return "deep"
	default:
		return "unknown"
	}
}

// Next cycles to the following mode.
func (m Mode) Next() Mode {
	return (m + 1) % 3
}

// StageChanged reports an orchestrator state transition.
type StageChanged struct {
	Round int
	State domain.SessionState
}

// ResearchCompleted carries the outcome of a question back to the model.
// Exactly one of Result, Quick or Deep is set on success.
type ResearchCompleted struct {
	Question string
	Result   *domain.ResearchResult
	Quick    *domain.QuickAnswer
	Deep     *domain.DeepResearchResult
	Err      error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewResearch is the question input and answer view.
	ViewResearch
	// ViewDocuments lists indexed documents.
	ViewDocuments
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewSettings is the settings configuration view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewResearch:
		return "research"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsLoaded carries the indexed document listing.
type DocumentsLoaded struct {
	Documents []domain.DocumentSummary
	Err       error
}

// IndexReset signals the index was cleared.
type IndexReset struct {
	Err error
}

// DocumentDeleted signals one document was removed from the index.
type DocumentDeleted struct {
	ID  string
	Err error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals settings were saved.
type SettingsSaved struct {
	Err error
}
