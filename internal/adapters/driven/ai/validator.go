package ai

import (
	"fmt"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// roles are checked in pipeline order.
var roles = []domain.LLMRole{domain.RolePlanner, domain.RoleReasoner, domain.RoleReviewer}

// ConfigValidator checks provider settings by pinging them. Every distinct
// role model is pinged once, so a typo in a role override surfaces before
// a research run reaches that stage.
type ConfigValidator struct {
	pingEmbedding func(*domain.EmbeddingSettings) error
	pingLLM       func(*domain.LLMSettings) error
}

// NewConfigValidator creates a validator that pings the configured providers.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		pingEmbedding: ValidateEmbeddingConfig,
		pingLLM:       ValidateLLMConfig,
	}
}

// ValidateEmbedding pings the embedding provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return v.pingEmbedding(config)
}

// ValidateLLM pings the default model and each role override.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	if err := v.pingLLM(config); err != nil {
		return err
	}

	checked := map[string]bool{config.Model: true}
	for _, role := range roles {
		model := config.ModelFor(role)
		if checked[model] {
			continue
		}
		checked[model] = true

		roleConfig := *config
		roleConfig.Model = model
		if err := v.pingLLM(&roleConfig); err != nil {
			return fmt.Errorf("%s model %q: %w", role, model, err)
		}
	}
	return nil
}
