package settings

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// MockSettingsService is a mock implementation of driving.SettingsService.
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppSettings), args.Error(1)
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	args := m.Called(settings)
	return args.Error(0)
}

func (m *MockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	args := m.Called(provider, model, apiKey)
	return args.Error(0)
}

func (m *MockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	args := m.Called(provider, model, apiKey)
	return args.Error(0)
}

func (m *MockSettingsService) SetResearch(research domain.ResearchSettings) error {
	args := m.Called(research)
	return args.Error(0)
}

func (m *MockSettingsService) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	args := m.Called()
	return args.Get(0).(domain.AppSettings)
}

func (m *MockSettingsService) ValidateEmbeddingConfig() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSettingsService) ValidateLLMConfig() error {
	args := m.Called()
	return args.Error(0)
}

// Helper function to create test settings.
func testSettings() *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
		BaseURL:  "http://localhost:11434",
	}
	s.LLM = domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.2",
		BaseURL:  "http://localhost:11434",
	}
	s.Research.MaxRounds = 3
	s.Research.TopK = 5
	s.Research.RequireCitations = true
	s.Research.Review.MinConfidence = 0.6
	return &s
}

func loadedView(svc *MockSettingsService) *View {
	view := NewView(nil, svc)
	view.SetDimensions(100, 40)
	view.Update(messages.SettingsLoaded{Settings: testSettings()})
	return view
}

func press(view *View, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = view.Update(msg)
	}
	return cmd
}

func TestNewView(t *testing.T) {
	s := styles.DefaultStyles()
	mockService := new(MockSettingsService)

	view := NewView(s, mockService)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Equal(t, mockService, view.settingsService)
	assert.Equal(t, SectionOverview, view.Section())
	assert.Equal(t, 0, view.selected)
	assert.Equal(t, 0, view.focusedField)
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
}

func TestNewView_TextInputConfiguration(t *testing.T) {
	view := NewView(nil, nil)

	assert.Equal(t, "Enter API key", view.embeddingAPIKeyInput.Placeholder)
	assert.Equal(t, 256, view.llmAPIKeyInput.CharLimit)
}

func TestView_Init_LoadSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.AppSettings
		err      error
	}{
		{name: "success", settings: testSettings()},
		{name: "error", err: errors.New("config unreadable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockSettingsService)
			mockService.On("Get").Return(tt.settings, tt.err)

			view := NewView(nil, mockService)
			cmd := view.Init()
			require.NotNil(t, cmd)

			loaded, ok := cmd().(messages.SettingsLoaded)
			require.True(t, ok)
			assert.Equal(t, tt.settings, loaded.Settings)
			assert.Equal(t, tt.err, loaded.Err)
			mockService.AssertExpectations(t)
		})
	}
}

func TestView_Init_NoService(t *testing.T) {
	view := NewView(nil, nil)

	loaded, ok := view.Init()().(messages.SettingsLoaded)

	require.True(t, ok)
	assert.ErrorIs(t, loaded.Err, ErrNoSettingsService)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil, nil)

	_, cmd := view.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 120, view.width)
}

func TestView_Update_SettingsLoaded_Error(t *testing.T) {
	view := NewView(nil, nil)

	view.Update(messages.SettingsLoaded{Err: errors.New("boom")})

	assert.EqualError(t, view.Err(), "boom")
	assert.Nil(t, view.Settings())
	assert.Contains(t, view.View(), "Loading settings...")
}

func TestView_Update_SettingsSaved_Success(t *testing.T) {
	mockService := new(MockSettingsService)
	mockService.On("Get").Return(testSettings(), nil)
	view := loadedView(mockService)
	view.section = SectionLLM
	view.selected = 2

	_, cmd := view.Update(messages.SettingsSaved{})

	require.NotNil(t, cmd)
	assert.Equal(t, SectionOverview, view.Section())
	assert.Equal(t, 0, view.selected)
	_, ok := cmd().(messages.SettingsLoaded)
	assert.True(t, ok)
}

func TestView_Update_SettingsSaved_Error(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	view.section = SectionResearch

	_, cmd := view.Update(messages.SettingsSaved{Err: errors.New("invalid")})

	assert.Nil(t, cmd)
	assert.EqualError(t, view.Err(), "invalid")
	// Stay in the section so the user can fix the value.
	assert.Equal(t, SectionResearch, view.Section())
}

func TestView_Escape(t *testing.T) {
	view := loadedView(new(MockSettingsService))

	press(view, "enter")
	require.Equal(t, SectionResearch, view.Section())

	cmd := press(view, "esc")
	assert.Nil(t, cmd)
	assert.Equal(t, SectionOverview, view.Section())

	cmd = press(view, "esc")
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_Overview_Navigation(t *testing.T) {
	view := loadedView(new(MockSettingsService))

	press(view, "down", "j", "j")
	assert.Equal(t, 2, view.selected)

	press(view, "up", "k", "k")
	assert.Equal(t, 0, view.selected)
}

func TestView_Overview_EnterSections(t *testing.T) {
	tests := []struct {
		downs   int
		section Section
	}{
		{0, SectionResearch},
		{1, SectionEmbedding},
		{2, SectionLLM},
	}

	for _, tt := range tests {
		view := loadedView(new(MockSettingsService))
		for i := 0; i < tt.downs; i++ {
			press(view, "down")
		}
		press(view, "enter")
		assert.Equal(t, tt.section, view.Section())
	}
}

func TestView_Overview_EnterBeforeLoad(t *testing.T) {
	view := NewView(nil, nil)

	press(view, "enter")

	assert.Equal(t, SectionOverview, view.Section())
}

func TestView_Research_Adjust(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, "enter")
	require.Equal(t, 3, view.Draft().MaxRounds)

	press(view, "l", "+")
	assert.Equal(t, 5, view.Draft().MaxRounds)

	press(view, "down", "h")
	assert.Equal(t, 4, view.Draft().TopK)

	press(view, "down", "l")
	assert.InDelta(t, 0.65, view.Draft().Review.MinConfidence, 1e-9)

	press(view, "down", " ")
	assert.False(t, view.Draft().RequireCitations)

	// Saved settings are untouched until enter.
	assert.Equal(t, 3, view.Settings().Research.MaxRounds)
	assert.Contains(t, view.View(), "Unsaved changes")
}

func TestView_Research_Clamps(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, "enter")

	for i := 0; i < 20; i++ {
		press(view, "l")
	}
	assert.Equal(t, maxRoundsLimit, view.Draft().MaxRounds)
	for i := 0; i < 20; i++ {
		press(view, "h")
	}
	assert.Equal(t, 1, view.Draft().MaxRounds)

	press(view, "down", "down")
	for i := 0; i < 30; i++ {
		press(view, "l")
	}
	assert.InDelta(t, 1.0, view.Draft().Review.MinConfidence, 1e-9)
}

func TestView_Research_Save(t *testing.T) {
	mockService := new(MockSettingsService)
	view := loadedView(mockService)
	press(view, "enter", "l")

	want := testSettings().Research
	want.MaxRounds = 4
	mockService.On("SetResearch", want).Return(nil)

	cmd := press(view, "enter")
	require.NotNil(t, cmd)
	saved, ok := cmd().(messages.SettingsSaved)
	require.True(t, ok)
	assert.NoError(t, saved.Err)
	mockService.AssertExpectations(t)
}

func TestView_Research_SaveNoService(t *testing.T) {
	view := NewView(nil, nil)
	view.Update(messages.SettingsLoaded{Settings: testSettings()})
	press(view, "enter")

	saved, ok := press(view, "enter")().(messages.SettingsSaved)

	require.True(t, ok)
	assert.ErrorIs(t, saved.Err, ErrNoSettingsService)
}

func TestView_Embedding_LocalProvider_SavesDirectly(t *testing.T) {
	mockService := new(MockSettingsService)
	mockService.On("SetEmbeddingProvider", domain.AIProviderOllama, "nomic-embed-text", "").Return(nil)
	view := loadedView(mockService)
	press(view, "down", "enter")
	require.Equal(t, SectionEmbedding, view.Section())
	assert.Equal(t, 0, view.selected)

	cmd := press(view, "enter")
	require.NotNil(t, cmd)
	saved := cmd().(messages.SettingsSaved)

	assert.NoError(t, saved.Err)
	mockService.AssertExpectations(t)
}

func TestView_Embedding_CloudProvider_NeedsKey(t *testing.T) {
	mockService := new(MockSettingsService)
	mockService.On("SetEmbeddingProvider", domain.AIProviderOpenAI, "text-embedding-3-small", "sk").Return(nil)
	view := loadedView(mockService)
	press(view, "down", "enter", "down", "enter")
	require.Equal(t, 1, view.focusedField)
	assert.Contains(t, view.View(), "API Key:")

	press(view, "s", "k")
	cmd := press(view, "enter")
	require.NotNil(t, cmd)
	cmd()

	mockService.AssertExpectations(t)
}

func TestView_Provider_TabTogglesKeyInput(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, "down", "down", "enter")
	require.Equal(t, SectionLLM, view.Section())

	// Ollama needs no key.
	press(view, "tab")
	assert.Equal(t, 0, view.focusedField)

	press(view, "down", "tab")
	assert.Equal(t, 1, view.focusedField)
	assert.Contains(t, view.renderHelp(), "[tab] back to list")

	press(view, "tab")
	assert.Equal(t, 0, view.focusedField)
}

func TestView_LLM_Navigation_Boundaries(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, "down", "down", "enter")

	press(view, "down", "down", "down", "down")
	assert.Equal(t, len(domain.AllLLMProviders())-1, view.selected)

	press(view, "up", "up", "up", "up")
	assert.Equal(t, 0, view.selected)
}

func TestView_LLM_SaveError(t *testing.T) {
	mockService := new(MockSettingsService)
	mockService.On("SetLLMProvider", domain.AIProviderOllama, "llama3.2", "").Return(errors.New("unreachable"))
	view := loadedView(mockService)
	press(view, "down", "down", "enter")

	cmd := press(view, "enter")
	view.Update(cmd())

	assert.EqualError(t, view.Err(), "unreachable")
	assert.Equal(t, SectionLLM, view.Section())
}

func TestView_View_Overview(t *testing.T) {
	mockService := new(MockSettingsService)
	mockService.On("Validate").Return(nil)
	view := loadedView(mockService)

	output := view.View()

	assert.Contains(t, output, "Settings")
	assert.Contains(t, output, "Research: 3 rounds, top 5, min confidence 0.60")
	assert.Contains(t, output, "Embedding Provider: Ollama (local) (nomic-embed-text)")
	assert.Contains(t, output, "LLM Provider: Ollama (local) (llama3.2)")
	assert.Contains(t, output, "Configuration is valid")
}

func TestView_View_Overview_ValidationError(t *testing.T) {
	mockService := new(MockSettingsService)
	mockService.On("Validate").Return(errors.New("llm not configured"))
	view := loadedView(mockService)

	assert.Contains(t, view.View(), "Warning: llm not configured")
}

func TestView_View_Research(t *testing.T) {
	mockService := new(MockSettingsService)
	view := loadedView(mockService)
	press(view, "enter")

	output := view.View()

	assert.Contains(t, output, "Research Settings")
	assert.Contains(t, output, "Max rounds")
	assert.Contains(t, output, "< 3 >")
	assert.Contains(t, output, "< on >")
	assert.NotContains(t, output, "Unsaved changes")
	assert.Contains(t, output, "[h/l] adjust")
}

func TestView_View_ProviderSelect(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, "down", "down", "enter")

	output := view.View()

	assert.Contains(t, output, "Select LLM Provider")
	assert.Contains(t, output, "(current)")
	assert.Contains(t, output, "Model: gpt-4o-mini")
	assert.NotContains(t, output, "API Key:")
}

func TestView_Reset(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	view.section = SectionEmbedding
	view.selected = 1
	view.focusedField = 1
	view.embeddingAPIKeyInput.SetValue("secret")
	view.err = errors.New("x")

	view.Reset()

	assert.Equal(t, SectionOverview, view.Section())
	assert.Equal(t, 0, view.selected)
	assert.Equal(t, 0, view.focusedField)
	assert.Empty(t, view.embeddingAPIKeyInput.Value())
	assert.NoError(t, view.Err())
}

func TestProviderIndex(t *testing.T) {
	providers := domain.AllLLMProviders()

	assert.Equal(t, 2, providerIndex(providers, domain.AIProviderAnthropic))
	assert.Equal(t, 0, providerIndex(providers, domain.AIProvider("unknown")))
}
