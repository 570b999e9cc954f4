package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// Reviewer tuning.
const (
	reviewerTemperature     = 0.3
	modelFallbackConfidence = 0.7
)

// Check names.
const (
	CheckRules = "rules"
	CheckModel = "model"
)

// reviewOutput is the model check's JSON reply.
type reviewOutput struct {
	NeedIterate bool     `json:"need_iterate"`
	Confidence  float64  `json:"confidence"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// Reviewer decides whether a draft answer is acceptable. It runs a pure
// rule check and a model check, then merges them with Combine.
type Reviewer struct {
	llm     driven.LLMService
	policy  domain.ReviewPolicy
	prompts driven.PromptStore
}

// Ensure Reviewer accepts prompt stores.
var _ driven.PromptStoreAware = (*Reviewer)(nil)

// NewReviewer creates a reviewer with the given thresholds.
func NewReviewer(llm driven.LLMService, policy domain.ReviewPolicy) *Reviewer {
	return &Reviewer{
		llm:    llm,
		policy: policy,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (r *Reviewer) SetPromptStore(store driven.PromptStore) {
	r.prompts = store
}

// Policy returns the reviewer thresholds.
func (r *Reviewer) Policy() domain.ReviewPolicy {
	return r.policy
}

// Review produces the verdict for one round.
func (r *Reviewer) Review(
	ctx context.Context, question string, draft domain.DraftAnswer, bundles []domain.EvidenceBundle,
) domain.ReviewVerdict {
	rule := RuleCheck(r.policy, draft, bundles)
	model := r.ModelCheck(ctx, question, draft, bundles)
	v := Combine(draft, rule, model)
	logger.Debug("Review: confidence=%.2f iterate=%t issues=%d", v.FinalConfidence, v.NeedIterate, len(v.Issues))
	return v
}

// RuleCheck applies the policy thresholds to a draft. It is pure.
// Hedge words are reported without forcing another round.
func RuleCheck(policy domain.ReviewPolicy, draft domain.DraftAnswer, bundles []domain.EvidenceBundle) domain.CheckResult {
	res := domain.CheckResult{
		Name:        CheckRules,
		Confidence:  draft.Confidence,
		Issues:      []string{},
		Suggestions: []string{},
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(draft.Text)); n < policy.MinAnswerLength {
		res.NeedIterate = true
		res.Issues = append(res.Issues, fmt.Sprintf("answer too short (%d characters)", n))
		res.Suggestions = append(res.Suggestions, "give a more complete answer that addresses every part of the question")
	}

	if draft.Confidence < policy.MinConfidence {
		res.NeedIterate = true
		res.Issues = append(res.Issues, fmt.Sprintf("confidence too low (%.2f)", draft.Confidence))
		res.Suggestions = append(res.Suggestions, "retrieve more specific evidence for the weakest claims")
	}

	if total := domain.TotalEvidence(bundles); total < policy.MinEvidence {
		res.NeedIterate = true
		res.Issues = append(res.Issues, fmt.Sprintf("insufficient evidence (only %d items)", total))
		res.Suggestions = append(res.Suggestions, "broaden or rephrase the sub-tasks to find more evidence")
	}

	lower := strings.ToLower(draft.Text)
	var hedges []string
	for _, w := range policy.HedgeWords {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			hedges = append(hedges, w)
		}
	}
	if len(hedges) > 0 {
		res.Issues = append(res.Issues, fmt.Sprintf("answer contains uncertain language (%s)", strings.Join(hedges, ", ")))
	}

	return res
}

// ModelCheck asks the model to assess the draft. It never fails: errors
// and unparseable replies accept the draft at confidence 0.7.
func (r *Reviewer) ModelCheck(
	ctx context.Context, question string, draft domain.DraftAnswer, bundles []domain.EvidenceBundle,
) domain.CheckResult {
	if r.llm == nil {
		logger.Degraded("reviewer", "no LLM configured")
		return modelFallback()
	}

	template := loadPrompt(r.prompts, driven.PromptReviewer, defaultReviewerPrompt)
	prompt := fmt.Sprintf(template, question, draft.Text, domain.TotalEvidence(bundles))

	reply, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: reviewerTemperature})
	if err != nil {
		logger.Degraded("reviewer", "generate: %v", err)
		return modelFallback()
	}

	switch out := ParseStrict[reviewOutput](reply, reviewSchema).(type) {
	case Parsed[reviewOutput]:
		return domain.CheckResult{
			Name:        CheckModel,
			NeedIterate: out.Value.NeedIterate,
			Confidence:  clamp01(out.Value.Confidence),
			Issues:      nonNil(out.Value.Issues),
			Suggestions: nonNil(out.Value.Suggestions),
		}
	case Fallback:
		logger.Degraded("reviewer", "%v", out.Err)
	}
	return modelFallback()
}

func modelFallback() domain.CheckResult {
	return domain.CheckResult{
		Name:        CheckModel,
		Confidence:  modelFallbackConfidence,
		Issues:      []string{},
		Suggestions: []string{},
		Fallback:    true,
	}
}

// Combine merges the two checks into a verdict. The final confidence is
// the lower of the draft and model confidences; either check can request
// another round.
func Combine(draft domain.DraftAnswer, rule, model domain.CheckResult) domain.ReviewVerdict {
	issues := make([]string, 0, len(rule.Issues)+len(model.Issues))
	issues = append(issues, rule.Issues...)
	issues = append(issues, model.Issues...)

	suggestions := make([]string, 0, len(rule.Suggestions)+len(model.Suggestions))
	suggestions = append(suggestions, rule.Suggestions...)
	suggestions = append(suggestions, model.Suggestions...)

	return domain.ReviewVerdict{
		FinalAnswer:     draft.Text,
		FinalConfidence: math.Min(draft.Confidence, model.Confidence),
		NeedIterate:     rule.NeedIterate || model.NeedIterate,
		Issues:          issues,
		Suggestions:     suggestions,
		Citations:       draft.Citations,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
