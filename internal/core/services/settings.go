package services

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedCacheSize  = "embedding.cache_size"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMPlanner      = "llm.planner_model"
	keyLLMReasoner     = "llm.reasoner_model"
	keyLLMReviewer     = "llm.reviewer_model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyMaxRounds       = "research.max_rounds"
	keyTopK            = "research.top_k"
	keyDeepTopK        = "research.deep_top_k"
	keyCitations       = "research.require_citations"
	keyParallelism     = "research.parallelism"
	keyMinAnswerLength = "review.min_answer_length"
	keyMinConfidence   = "review.min_confidence"
	keyMinEvidence     = "review.min_evidence"
	keyHedgeWords      = "review.hedge_words"
	keyChunkSize       = "chunker.chunk_size"
	keyRetryAttempts   = "retry.max_attempts"
	keyRetryInitial    = "retry.initial_backoff"
	keyRetryMax        = "retry.max_backoff"
	keyRetryTimeout    = "retry.timeout"
	keyRetryRPS        = "retry.requests_per_second"
	keyIngestWorkers   = "ingest.workers"
	keyIngestAttempts  = "ingest.max_attempts"
	keyStorageBackend  = "storage.backend"
)

// Environment variables consulted when no API key is configured.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	envLLMAPIKey       = "SERCHA_LLM_API_KEY"
	envEmbeddingAPIKey = "SERCHA_EMBEDDING_API_KEY"
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envAnthropicAPIKey = "ANTHROPIC_API_KEY"
	envDashScopeAPIKey = "DASHSCOPE_API_KEY"
)

const localBaseURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
// API keys missing from the config are read from the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
			CacheSize:  s.getInt(keyEmbedCacheSize, defaults.Embedding.CacheSize),
		},
		LLM: domain.LLMSettings{
			Provider:      s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:         s.getString(keyLLMModel, defaults.LLM.Model),
			PlannerModel:  s.configStore.GetString(keyLLMPlanner),
			ReasonerModel: s.configStore.GetString(keyLLMReasoner),
			ReviewerModel: s.configStore.GetString(keyLLMReviewer),
			BaseURL:       s.configStore.GetString(keyLLMBaseURL),
			APIKey:        s.configStore.GetString(keyLLMAPIKey),
		},
		Research: domain.ResearchSettings{
			MaxRounds:        s.getInt(keyMaxRounds, defaults.Research.MaxRounds),
			TopK:             s.getInt(keyTopK, defaults.Research.TopK),
			DeepTopK:         s.getInt(keyDeepTopK, defaults.Research.DeepTopK),
			RequireCitations: s.getBool(keyCitations, defaults.Research.RequireCitations),
			Parallelism:      s.getInt(keyParallelism, defaults.Research.Parallelism),
			Review: domain.ReviewPolicy{
				MinAnswerLength: s.getInt(keyMinAnswerLength, defaults.Research.Review.MinAnswerLength),
				MinConfidence:   s.getFloat(keyMinConfidence, defaults.Research.Review.MinConfidence),
				MinEvidence:     s.getInt(keyMinEvidence, defaults.Research.Review.MinEvidence),
				HedgeWords:      s.getStringSlice(keyHedgeWords, defaults.Research.Review.HedgeWords),
			},
		},
		Retry: domain.RetrySettings{
			MaxAttempts:       s.getInt(keyRetryAttempts, defaults.Retry.MaxAttempts),
			InitialBackoff:    s.getDuration(keyRetryInitial, defaults.Retry.InitialBackoff),
			MaxBackoff:        s.getDuration(keyRetryMax, defaults.Retry.MaxBackoff),
			Timeout:           s.getDuration(keyRetryTimeout, defaults.Retry.Timeout),
			RequestsPerSecond: s.getFloat(keyRetryRPS, defaults.Retry.RequestsPerSecond),
		},
		Ingest: domain.IngestSettings{
			ChunkSize:   s.getInt(keyChunkSize, defaults.Ingest.ChunkSize),
			Workers:     s.getInt(keyIngestWorkers, defaults.Ingest.Workers),
			MaxAttempts: s.getInt(keyIngestAttempts, defaults.Ingest.MaxAttempts),
		},
		Storage: s.getBackend(defaults.Storage),
	}

	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = envAPIKey(envLLMAPIKey, settings.LLM.Provider, settings.LLM.BaseURL)
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = envAPIKey(envEmbeddingAPIKey, settings.Embedding.Provider, settings.Embedding.BaseURL)
	}

	return settings, nil
}

// Save persists application settings.
// API keys that came from the environment are not written to the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedCacheSize, settings.Embedding.CacheSize},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMPlanner, settings.LLM.PlannerModel},
		{keyLLMReasoner, settings.LLM.ReasonerModel},
		{keyLLMReviewer, settings.LLM.ReviewerModel},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyMaxRounds, settings.Research.MaxRounds},
		{keyTopK, settings.Research.TopK},
		{keyDeepTopK, settings.Research.DeepTopK},
		{keyCitations, settings.Research.RequireCitations},
		{keyParallelism, settings.Research.Parallelism},
		{keyMinAnswerLength, settings.Research.Review.MinAnswerLength},
		{keyMinConfidence, settings.Research.Review.MinConfidence},
		{keyMinEvidence, settings.Research.Review.MinEvidence},
		{keyHedgeWords, settings.Research.Review.HedgeWords},
		{keyChunkSize, settings.Ingest.ChunkSize},
		{keyRetryAttempts, settings.Retry.MaxAttempts},
		{keyRetryInitial, settings.Retry.InitialBackoff.String()},
		{keyRetryMax, settings.Retry.MaxBackoff.String()},
		{keyRetryTimeout, settings.Retry.Timeout.String()},
		{keyRetryRPS, settings.Retry.RequestsPerSecond},
		{keyIngestWorkers, settings.Ingest.Workers},
		{keyIngestAttempts, settings.Ingest.MaxAttempts},
		{keyStorageBackend, string(settings.Storage)},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	llmEnv := envAPIKey(envLLMAPIKey, settings.LLM.Provider, settings.LLM.BaseURL)
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != llmEnv {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	embedEnv := envAPIKey(envEmbeddingAPIKey, settings.Embedding.Provider, settings.Embedding.BaseURL)
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != embedEnv {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = envAPIKey(envEmbeddingAPIKey, provider, settings.Embedding.BaseURL)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = localBaseURL
		}
	} else if settings.Embedding.BaseURL == localBaseURL {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Dimensions follow the model when it is known.
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	} else {
		settings.Embedding.Dimensions = 0
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = envAPIKey(envLLMAPIKey, provider, settings.LLM.BaseURL)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = localBaseURL
		}
	} else if settings.LLM.BaseURL == localBaseURL {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetResearch updates orchestration and review settings.
func (s *SettingsService) SetResearch(research domain.ResearchSettings) error {
	if research.MaxRounds < 1 {
		return fmt.Errorf("%w: max rounds must be at least 1", domain.ErrInvalidInput)
	}
	if research.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1", domain.ErrInvalidInput)
	}
	if c := research.Review.MinConfidence; c < 0 || c > 1 {
		return fmt.Errorf("%w: min confidence %.2f outside [0, 1]", domain.ErrInvalidInput, c)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Research = research
	return s.Save(settings)
}

// Validate checks that the research pipeline can run with current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: configure one with 'settings embedding'", domain.ErrEmbeddingUnavailable)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: configure one with 'settings llm'", domain.ErrLLMUnavailable)
	}
	if !settings.Storage.IsValid() {
		return fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, settings.Storage)
	}
	if settings.Research.MaxRounds < 1 {
		return fmt.Errorf("%w: research.max_rounds must be at least 1", domain.ErrInvalidInput)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// envAPIKey returns the API key from the environment: the sercha-specific
// variable first, then the provider's conventional one.
func envAPIKey(specific string, provider domain.AIProvider, baseURL string) string {
	if v := os.Getenv(specific); v != "" {
		return v
	}
	switch provider {
	case domain.AIProviderOpenAI:
		if strings.Contains(baseURL, "dashscope") {
			if v := os.Getenv(envDashScopeAPIKey); v != "" {
				return v
			}
		}
		return os.Getenv(envOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return os.Getenv(envAnthropicAPIKey)
	default:
		return ""
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
