package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any OpenAI-compatible endpoint
	// (DashScope compatible mode, LM Studio, vLLM).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI-compatible providers).
	APIKey string

	// Dimensions is the embedding vector size. Zero uses the model default.
	Dimensions int

	// CacheSize is the number of query embeddings kept in memory.
	CacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMRole identifies a pipeline stage that calls the LLM.
type LLMRole string

// LLM roles.
const (
	RolePlanner  LLMRole = "planner"
	RoleReasoner LLMRole = "reasoner"
	RoleReviewer LLMRole = "reviewer"
)

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the default LLM model name.
	Model string

	// PlannerModel overrides Model for the Planner.
	PlannerModel string

	// ReasonerModel overrides Model for the Reasoner.
	ReasonerModel string

	// ReviewerModel overrides Model for the Reviewer's model check.
	ReviewerModel string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ModelFor returns the model configured for a role, falling back to Model.
func (l LLMSettings) ModelFor(role LLMRole) string {
	var m string
	switch role {
	case RolePlanner:
		m = l.PlannerModel
	case RoleReasoner:
		m = l.ReasonerModel
	case RoleReviewer:
		m = l.ReviewerModel
	}
	if m == "" {
		return l.Model
	}
	return m
}

// ReviewPolicy holds the Reviewer's rule-check thresholds.
type ReviewPolicy struct {
	// MinAnswerLength is the minimum answer length in characters.
	MinAnswerLength int

	// MinConfidence is the minimum acceptable Reasoner confidence.
	MinConfidence float64

	// MinEvidence is the minimum total evidence count across bundles.
	MinEvidence int

	// HedgeWords are flagged (without forcing iteration) when present.
	HedgeWords []string
}

// DefaultReviewPolicy returns the standard review thresholds.
func DefaultReviewPolicy() ReviewPolicy {
	return ReviewPolicy{
		MinAnswerLength: 50,
		MinConfidence:   0.6,
		MinEvidence:     3,
		HedgeWords:      []string{"uncertain", "possibly", "perhaps", "unclear", "might"},
	}
}

// ResearchSettings holds orchestration configuration.
type ResearchSettings struct {
	// MaxRounds caps the number of pipeline rounds.
	MaxRounds int

	// TopK is the evidence count per sub-task.
	TopK int

	// DeepTopK is the evidence count for deep research.
	DeepTopK int

	// RequireCitations asks the Reasoner for citations by default.
	RequireCitations bool

	// Parallelism bounds concurrent sub-task searches.
	Parallelism int

	// Review holds the rule-check thresholds.
	Review ReviewPolicy
}

// RetrySettings is the capability-level retry policy for embed/generate.
type RetrySettings struct {
	// MaxAttempts is the total number of attempts (1 disables retry).
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential delay.
	MaxBackoff time.Duration

	// Timeout bounds each attempt.
	Timeout time.Duration

	// RequestsPerSecond limits call rate. Zero disables limiting.
	RequestsPerSecond float64
}

// IngestSettings configures document ingestion.
type IngestSettings struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int

	// Workers bounds concurrent documents in a batch.
	Workers int

	// MaxAttempts is the per-document attempt count in a batch.
	MaxAttempts int
}

// StorageBackend selects the evidence store implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite persists documents and vectors in a local database.
	StorageSQLite StorageBackend = "sqlite"

	// StorageMemory keeps everything in process memory.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageSQLite || b == StorageMemory
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Research holds orchestration settings.
	Research ResearchSettings

	// Retry holds the external-call retry policy.
	Retry RetrySettings

	// Ingest holds ingestion settings.
	Ingest IngestSettings

	// Storage selects the evidence store.
	Storage StorageBackend
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; users set them via settings commands.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			CacheSize: 256,
		},
		LLM: LLMSettings{},
		Research: ResearchSettings{
			MaxRounds:        3,
			TopK:             5,
			DeepTopK:         10,
			RequireCitations: true,
			Parallelism:      4,
			Review:           DefaultReviewPolicy(),
		},
		Retry: RetrySettings{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     8 * time.Second,
			Timeout:        60 * time.Second,
		},
		Ingest: IngestSettings{
			ChunkSize:   500,
			Workers:     2,
			MaxAttempts: 3,
		},
		Storage: StorageSQLite,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// DashScope (OpenAI-compatible mode)
		"text-embedding-v3": 1024,
	}
}
