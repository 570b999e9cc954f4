// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-research/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/sercha-research/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-research/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-research/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-research/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-research/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-research/internal/adapters/driven/resilience"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// fixHint is appended to configuration errors.
const fixHint = "Run 'sercha-research settings' to fix"

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	// Embedding is the decorated embedding service, or nil.
	Embedding driven.EmbeddingService

	// LLM is the default decorated LLM service, or nil.
	LLM driven.LLMService

	// Planner, Reasoner and Reviewer are per-role services. A role without
	// its own model shares LLM.
	Planner  driven.LLMService
	Reasoner driven.LLMService
	Reviewer driven.LLMService

	// Warnings lists non-fatal issues that left a service unset.
	Warnings []string
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedding != nil {
		r.Embedding.Close()
	}
	closed := map[driven.LLMService]bool{}
	for _, svc := range []driven.LLMService{r.LLM, r.Planner, r.Reasoner, r.Reviewer} {
		if svc != nil && !closed[svc] {
			closed[svc] = true
			svc.Close()
		}
	}
}

// Init creates, validates and decorates every configured AI service.
// Failures are recorded as warnings; the pipeline reports the missing
// capability when it is used.
func Init(settings domain.AppSettings) *InitResult {
	result := &InitResult{}
	policy := resilience.PolicyFromSettings(settings.Retry)

	emb, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	} else if emb != nil {
		result.Embedding = cache.New(resilience.NewEmbedding(emb, policy), settings.Embedding.CacheSize)
	}

	llm, err := CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	if llm == nil {
		return result
	}
	result.LLM = resilience.NewLLM(llm, policy)

	byModel := map[string]driven.LLMService{llm.ModelName(): result.LLM}
	roleService := func(role domain.LLMRole) driven.LLMService {
		model := settings.LLM.ModelFor(role)
		if svc, ok := byModel[model]; ok {
			return svc
		}
		roleSettings := settings.LLM
		roleSettings.Model = model
		svc, err := CreateLLMService(&roleSettings)
		if err != nil || svc == nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s model %q unavailable, using %s: %v", role, model, llm.ModelName(), err))
			return result.LLM
		}
		wrapped := resilience.NewLLM(svc, policy)
		byModel[model] = wrapped
		return wrapped
	}
	result.Planner = roleService(domain.RolePlanner)
	result.Reasoner = roleService(domain.RoleReasoner)
	result.Reviewer = roleService(domain.RoleReviewer)

	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ErrNoEmbeddings is returned for providers without an embeddings API.
var ErrNoEmbeddings = errors.New("anthropic does not support embeddings, use ollama or openai")

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, ErrNoEmbeddings
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
