package resilience

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMService retries Generate and Chat on transient failures.
type LLMService struct {
	inner driven.LLMService
	retry *retrier
}

// NewLLM wraps inner with the given policy.
func NewLLM(inner driven.LLMService, p Policy) *LLMService {
	return &LLMService{inner: inner, retry: newRetrier("llm "+inner.ModelName(), p)}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var out string
	err := s.retry.do(ctx, "generate", func(ctx context.Context) error {
		var err error
		out, err = s.inner.Generate(ctx, prompt, opts)
		return err
	})
	return out, err
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var out string
	err := s.retry.do(ctx, "chat", func(ctx context.Context) error {
		var err error
		out, err = s.inner.Chat(ctx, messages, opts)
		return err
	})
	return out, err
}

// ModelName returns the wrapped model name.
func (s *LLMService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service once, without retry.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the wrapped service.
func (s *LLMService) Close() error {
	return s.inner.Close()
}
