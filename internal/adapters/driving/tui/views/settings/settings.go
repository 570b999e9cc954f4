// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

// ErrNoSettingsService is reported when the view has no settings service.
var ErrNoSettingsService = errors.New("settings service not available")

// Section tracks which settings section is active.
type Section int

const (
	SectionOverview Section = iota
	SectionResearch
	SectionEmbedding
	SectionLLM
)

// researchField identifies an editable field in the research section.
type researchField int

const (
	fieldMaxRounds researchField = iota
	fieldTopK
	fieldMinConfidence
	fieldCitations
	researchFieldCount
)

// Bounds for values edited from the TUI. The CLI accepts a wider range.
const (
	maxRoundsLimit   = 10
	topKLimit        = 50
	confidenceStep   = 0.05
	overviewItemsLen = 3
)

// Key constants for key handling.
const (
	keyDown  = "down"
	keyEnter = "enter"
	keyTab   = "tab"
)

// View is the settings configuration view.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	// Current settings
	settings *domain.AppSettings
	err      error

	// Navigation state
	section      Section
	selected     int // selection within current section
	focusedField int // 1 when the API key input has focus

	// Research values being edited, saved on enter
	draft domain.ResearchSettings

	// Text inputs for API keys
	embeddingAPIKeyInput textinput.Model
	llmAPIKeyInput       textinput.Model

	// Dimensions
	width  int
	height int
	ready  bool
}

func newAPIKeyInput() textinput.Model {
	in := textinput.New()
	in.Placeholder = "Enter API key"
	in.EchoMode = textinput.EchoPassword
	in.CharLimit = 256
	return in
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles:               s,
		settingsService:      settingsService,
		section:              SectionOverview,
		embeddingAPIKeyInput: newAPIKeyInput(),
		llmAPIKeyInput:       newAPIKeyInput(),
	}
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that loads current settings.
func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		settings, err := svc.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.settings = msg.Settings
			v.err = nil
		}
		return v, nil

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.Reset()
		return v, v.loadSettings()

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleKeyMsg handles key presses based on current section.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	// Global escape to go back
	if msg.String() == "esc" {
		if v.section == SectionOverview {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
		v.Reset()
		return v, nil
	}

	switch v.section {
	case SectionOverview:
		return v.handleOverviewKeys(msg)
	case SectionResearch:
		return v.handleResearchKeys(msg)
	case SectionEmbedding:
		return v.handleProviderKeys(msg, domain.AllEmbeddingProviders(), &v.embeddingAPIKeyInput, v.setEmbeddingProvider)
	case SectionLLM:
		return v.handleProviderKeys(msg, domain.AllLLMProviders(), &v.llmAPIKeyInput, v.setLLMProvider)
	}

	return v, nil
}

func (v *View) handleOverviewKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < overviewItemsLen-1 {
			v.selected++
		}
	case keyEnter:
		if v.settings == nil {
			return v, nil
		}
		switch v.selected {
		case 0:
			v.section = SectionResearch
			v.draft = v.settings.Research
			v.selected = 0
		case 1:
			v.section = SectionEmbedding
			v.selected = providerIndex(domain.AllEmbeddingProviders(), v.settings.Embedding.Provider)
		case 2:
			v.section = SectionLLM
			v.selected = providerIndex(domain.AllLLMProviders(), v.settings.LLM.Provider)
		}
	}
	return v, nil
}

func (v *View) handleResearchKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < int(researchFieldCount)-1 {
			v.selected++
		}
	case "left", "h", "-":
		v.adjust(researchField(v.selected), -1)
	case "right", "l", "+", "=", " ":
		v.adjust(researchField(v.selected), 1)
	case keyEnter:
		return v, v.setResearch(v.draft)
	}
	return v, nil
}

// adjust steps a research field by dir, clamped to its range.
func (v *View) adjust(field researchField, dir int) {
	switch field {
	case fieldMaxRounds:
		v.draft.MaxRounds = clamp(v.draft.MaxRounds+dir, 1, maxRoundsLimit)
	case fieldTopK:
		v.draft.TopK = clamp(v.draft.TopK+dir, 1, topKLimit)
	case fieldMinConfidence:
		c := v.draft.Review.MinConfidence + float64(dir)*confidenceStep
		// Round to the step so repeated presses do not drift.
		c = math.Round(c/confidenceStep) * confidenceStep
		v.draft.Review.MinConfidence = math.Max(0, math.Min(1, c))
	case fieldCitations:
		v.draft.RequireCitations = !v.draft.RequireCitations
	}
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}

// handleProviderKeys drives the embedding and LLM provider pickers.
func (v *View) handleProviderKeys(
	msg tea.KeyMsg,
	providers []domain.AIProvider,
	apiKey *textinput.Model,
	save func(domain.AIProvider, string) tea.Cmd,
) (*View, tea.Cmd) {
	valid := v.selected >= 0 && v.selected < len(providers)

	if v.focusedField == 1 {
		switch msg.String() {
		case keyTab, "shift+tab":
			v.focusedField = 0
			apiKey.Blur()
			return v, nil
		case keyEnter:
			if valid {
				return v, save(providers[v.selected], apiKey.Value())
			}
			return v, nil
		default:
			var cmd tea.Cmd
			*apiKey, cmd = apiKey.Update(msg)
			return v, cmd
		}
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < len(providers)-1 {
			v.selected++
		}
	case keyTab:
		if valid && providers[v.selected].RequiresAPIKey() {
			v.focusedField = 1
			return v, apiKey.Focus()
		}
	case keyEnter:
		if !valid {
			return v, nil
		}
		provider := providers[v.selected]
		if provider.RequiresAPIKey() {
			v.focusedField = 1
			return v, apiKey.Focus()
		}
		return v, save(provider, "")
	}
	return v, nil
}

// Commands to update settings. State changes happen when SettingsSaved arrives.

func (v *View) setResearch(research domain.ResearchSettings) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		return messages.SettingsSaved{Err: svc.SetResearch(research)}
	}
}

func (v *View) setEmbeddingProvider(provider domain.AIProvider, apiKey string) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		model := domain.DefaultEmbeddingModels()[provider]
		return messages.SettingsSaved{Err: svc.SetEmbeddingProvider(provider, model, apiKey)}
	}
}

func (v *View) setLLMProvider(provider domain.AIProvider, apiKey string) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		model := domain.DefaultLLMModels()[provider]
		return messages.SettingsSaved{Err: svc.SetLLMProvider(provider, model, apiKey)}
	}
}

func providerIndex(providers []domain.AIProvider, current domain.AIProvider) int {
	for i, p := range providers {
		if p == current {
			return i
		}
	}
	return 0
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	switch v.section {
	case SectionOverview:
		b.WriteString(v.renderOverview())
	case SectionResearch:
		b.WriteString(v.renderResearch())
	case SectionEmbedding:
		b.WriteString(v.renderProviderSelect("Select Embedding Provider", domain.AllEmbeddingProviders(),
			v.settings.Embedding.Provider, domain.DefaultEmbeddingModels(), &v.embeddingAPIKeyInput))
	case SectionLLM:
		b.WriteString(v.renderProviderSelect("Select LLM Provider", domain.AllLLMProviders(),
			v.settings.LLM.Provider, domain.DefaultLLMModels(), &v.llmAPIKeyInput))
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderOverview() string {
	var b strings.Builder

	r := v.settings.Research
	researchValue := fmt.Sprintf("%d rounds, top %d, min confidence %.2f", r.MaxRounds, r.TopK, r.Review.MinConfidence)

	embeddingValue := "Not Set"
	if v.settings.Embedding.Provider != "" {
		embeddingValue = fmt.Sprintf("%s (%s)", v.settings.Embedding.Provider.Description(), v.settings.Embedding.Model)
	}

	llmValue := "Not Set"
	if v.settings.LLM.Provider != "" {
		llmValue = fmt.Sprintf("%s (%s)", v.settings.LLM.Provider.Description(), v.settings.LLM.Model)
	}

	items := []struct {
		label  string
		value  string
		status string
	}{
		{label: "Research", value: researchValue},
		{label: "Embedding Provider", value: embeddingValue, status: v.configuredStatus(v.settings.Embedding.IsConfigured())},
		{label: "LLM Provider", value: llmValue, status: v.configuredStatus(v.settings.LLM.IsConfigured())},
	}

	for i, item := range items {
		line := fmt.Sprintf("%s%s: %s", indicator(i == v.selected), item.label, item.value)
		if item.status != "" {
			line += " " + item.status
		}
		b.WriteString(v.line(i == v.selected, line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.settingsService != nil {
		if err := v.settingsService.Validate(); err != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Warning: %s", err.Error())))
		} else {
			b.WriteString(v.styles.Success.Render("Configuration is valid"))
		}
	}

	return b.String()
}

func (v *View) configuredStatus(ok bool) string {
	if ok {
		return v.styles.Success.Render("[configured]")
	}
	return v.styles.Warning.Render("[needs API key]")
}

func (v *View) renderResearch() string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render("Research Settings"))
	b.WriteString("\n\n")

	citations := "off"
	if v.draft.RequireCitations {
		citations = "on"
	}

	fields := []struct {
		label string
		value string
	}{
		{"Max rounds", fmt.Sprintf("%d", v.draft.MaxRounds)},
		{"Top K per sub-task", fmt.Sprintf("%d", v.draft.TopK)},
		{"Min confidence", fmt.Sprintf("%.2f", v.draft.Review.MinConfidence)},
		{"Require citations", citations},
	}

	for i, f := range fields {
		line := fmt.Sprintf("%s%-20s < %s >", indicator(i == v.selected), f.label, f.value)
		b.WriteString(v.line(i == v.selected, line))
		b.WriteString("\n")
	}

	if v.settings != nil && v.dirty() {
		b.WriteString("\n")
		b.WriteString(v.styles.Warning.Render("Unsaved changes"))
		b.WriteString("\n")
	}

	return b.String()
}

// dirty reports whether an editable research field differs from the saved value.
func (v *View) dirty() bool {
	saved := v.settings.Research
	return v.draft.MaxRounds != saved.MaxRounds ||
		v.draft.TopK != saved.TopK ||
		v.draft.Review.MinConfidence != saved.Review.MinConfidence ||
		v.draft.RequireCitations != saved.RequireCitations
}

func (v *View) renderProviderSelect(
	title string,
	providers []domain.AIProvider,
	current domain.AIProvider,
	defaults map[domain.AIProvider]string,
	apiKey *textinput.Model,
) string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render(title))
	b.WriteString("\n\n")

	for i, provider := range providers {
		highlighted := i == v.selected && v.focusedField == 0

		mark := ""
		if provider == current {
			mark = v.styles.Success.Render(" (current)")
		}

		b.WriteString(v.line(highlighted, indicator(highlighted)+provider.Description()+mark))
		b.WriteString("\n")

		if model, ok := defaults[provider]; ok {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("    Model: %s", model)))
			b.WriteString("\n")
		}
	}

	if v.selected >= 0 && v.selected < len(providers) && providers[v.selected].RequiresAPIKey() {
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render("API Key:"))
		b.WriteString("\n")
		b.WriteString(apiKey.View())
		b.WriteString("\n")
	}

	return b.String()
}

func indicator(selected bool) string {
	if selected {
		return "> "
	}
	return "  "
}

func (v *View) line(selected bool, text string) string {
	if selected {
		return v.styles.Selected.Render(text)
	}
	return v.styles.Normal.Render(text)
}

func (v *View) renderHelp() string {
	switch v.section {
	case SectionOverview:
		return v.styles.Help.Render("[j/k] navigate  [enter] edit  [esc] back")
	case SectionResearch:
		return v.styles.Help.Render("[j/k] field  [h/l] adjust  [enter] save  [esc] discard")
	case SectionEmbedding, SectionLLM:
		if v.focusedField == 1 {
			return v.styles.Help.Render("[tab] back to list  [enter] save  [esc] back")
		}
		return v.styles.Help.Render("[j/k] navigate  [tab] API key  [enter] select  [esc] back")
	default:
		return ""
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Section returns the active section.
func (v *View) Section() Section {
	return v.section
}

// Draft returns the research settings being edited.
func (v *View) Draft() domain.ResearchSettings {
	return v.draft
}

// Settings returns the last loaded settings.
func (v *View) Settings() *domain.AppSettings {
	return v.settings
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.section = SectionOverview
	v.selected = 0
	v.focusedField = 0
	v.err = nil
	v.embeddingAPIKeyInput.SetValue("")
	v.embeddingAPIKeyInput.Blur()
	v.llmAPIKeyInput.SetValue("")
	v.llmAPIKeyInput.Blur()
}
