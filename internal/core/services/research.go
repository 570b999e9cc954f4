package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// Single-shot defaults.
const (
	defaultTopK        = 5
	defaultDeepTopK    = 10
	answerTemperature  = 0.3
	citationExcerptLen = 200
)

// RoleLLMs holds the model used by each pipeline stage.
// A nil role falls back to Default.
type RoleLLMs struct {
	Default  driven.LLMService
	Planner  driven.LLMService
	Reasoner driven.LLMService
	Reviewer driven.LLMService
}

// For returns the model for role, or Default when the role has none.
func (r RoleLLMs) For(role domain.LLMRole) driven.LLMService {
	var llm driven.LLMService
	switch role {
	case domain.RolePlanner:
		llm = r.Planner
	case domain.RoleReasoner:
		llm = r.Reasoner
	case domain.RoleReviewer:
		llm = r.Reviewer
	}
	if llm == nil {
		return r.Default
	}
	return llm
}

// Ensure ResearchService implements the driving ports.
var (
	_ driving.ResearchService  = (*ResearchService)(nil)
	_ driving.ProgressReporter = (*ResearchService)(nil)
	_ driven.PromptStoreAware  = (*ResearchService)(nil)
)

// ResearchService answers questions over the evidence index.
type ResearchService struct {
	index        *EvidenceIndex
	llms         RoleLLMs
	settings     domain.ResearchSettings
	planner      *Planner
	reasoner     *Reasoner
	reviewer     *Reviewer
	orchestrator *Orchestrator
	prompts      driven.PromptStore
}

// NewResearchService wires the pipeline stages over index.
func NewResearchService(index *EvidenceIndex, llms RoleLLMs, settings domain.ResearchSettings) *ResearchService {
	planner := NewPlanner(llms.For(domain.RolePlanner))
	retriever := NewRetriever(index, settings.Parallelism)
	reasoner := NewReasoner(llms.For(domain.RoleReasoner))
	reviewer := NewReviewer(llms.For(domain.RoleReviewer), settings.Review)

	return &ResearchService{
		index:        index,
		llms:         llms,
		settings:     settings,
		planner:      planner,
		reasoner:     reasoner,
		reviewer:     reviewer,
		orchestrator: NewOrchestrator(planner, retriever, reasoner, reviewer, settings.MaxRounds),
	}
}

// SetPromptStore applies a prompt store to every stage.
func (s *ResearchService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
	s.planner.SetPromptStore(store)
	s.reasoner.SetPromptStore(store)
	s.reviewer.SetPromptStore(store)
}

// SetProgress registers a state-change callback.
func (s *ResearchService) SetProgress(fn driving.ProgressFunc) {
	s.orchestrator.SetProgress(fn)
}

// AnswerQuestion runs the iterative research pipeline.
func (s *ResearchService) AnswerQuestion(
	ctx context.Context, question string, opts domain.AnswerOptions,
) (*domain.ResearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if err := s.ready(domain.RoleReasoner); err != nil {
		return nil, err
	}
	if opts.TopK <= 0 {
		opts.TopK = s.topK()
	}
	return s.orchestrator.Run(ctx, question, opts)
}

// Ask answers in one shot from the top evidence. It returns
// domain.ErrInsufficientEvidence when nothing is retrieved.
func (s *ResearchService) Ask(ctx context.Context, question string, topK int) (*domain.QuickAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if err := s.ready(domain.RoleReasoner); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.topK()
	}

	items, err := s.index.Search(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrInsufficientEvidence
	}

	template := loadPrompt(s.prompts, driven.PromptQuickAnswer, defaultQuickAnswerPrompt)
	prompt := fmt.Sprintf(template, EvidenceContext(items), question)

	answer, err := s.llms.For(domain.RoleReasoner).Generate(ctx, prompt, driven.GenerateOptions{
		Temperature: answerTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("quick answer: %w", err)
	}

	return &domain.QuickAnswer{
		Answer:    strings.TrimSpace(answer),
		Citations: Citations(items),
	}, nil
}

// DeepResearch writes a multi-angle analysis from the top evidence.
func (s *ResearchService) DeepResearch(
	ctx context.Context, question string, topK int,
) (*domain.DeepResearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if err := s.ready(domain.RoleReasoner); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.settings.DeepTopK
	}
	if topK <= 0 {
		topK = defaultDeepTopK
	}

	logger.Section("Deep Research")
	items, err := s.index.Search(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrInsufficientEvidence
	}
	logger.Debug("Deep research over %d evidence items", len(items))

	template := loadPrompt(s.prompts, driven.PromptDeepResearch, defaultDeepResearchPrompt)
	prompt := fmt.Sprintf(template, EvidenceContext(items), question)

	done := logger.Timed("deep research generation")
	analysis, err := s.llms.For(domain.RoleReasoner).Generate(ctx, prompt, driven.GenerateOptions{
		Temperature: answerTemperature,
	})
	done()
	if err != nil {
		return nil, fmt.Errorf("deep research: %w", err)
	}

	return &domain.DeepResearchResult{
		Analysis:     strings.TrimSpace(analysis),
		EvidenceUsed: items,
	}, nil
}

// ready returns the infrastructure error that prevents a run, if any.
func (s *ResearchService) ready(role domain.LLMRole) error {
	if s.llms.For(role) == nil {
		return domain.ErrLLMUnavailable
	}
	if s.index == nil || !s.index.Available() {
		return domain.ErrEmbeddingUnavailable
	}
	return nil
}

func (s *ResearchService) topK() int {
	if s.settings.TopK > 0 {
		return s.settings.TopK
	}
	return defaultTopK
}

// EvidenceContext formats items as "[Evidence i] text" blocks.
func EvidenceContext(items []domain.EvidenceItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("[Evidence %d] %s", i+1, item.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Citations builds display citations aligned with EvidenceContext labels.
func Citations(items []domain.EvidenceItem) []domain.Citation {
	out := make([]domain.Citation, len(items))
	for i, item := range items {
		out[i] = domain.Citation{
			Label:    fmt.Sprintf("Evidence %d", i+1),
			Excerpt:  truncateRunes(item.Chunk.Text, citationExcerptLen),
			Score:    item.Score,
			SourceID: item.Chunk.SourceID,
		}
	}
	return out
}
