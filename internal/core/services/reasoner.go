package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// Reasoner tuning.
const (
	reasonerTemperature = 0.3
	itemsPerSubTask     = 3
	evidenceTextLimit   = 300
	fallbackConfidence  = 0.5
	fallbackReasoning   = "unable to parse structured response"
)

// draftOutput is the Reasoner's JSON reply.
type draftOutput struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Citations  []string `json:"citations"`
}

// Reasoner synthesises a draft answer from evidence bundles.
type Reasoner struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// Ensure Reasoner accepts prompt stores.
var _ driven.PromptStoreAware = (*Reasoner)(nil)

// NewReasoner creates a reasoner.
func NewReasoner(llm driven.LLMService) *Reasoner {
	return &Reasoner{llm: llm}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (r *Reasoner) SetPromptStore(store driven.PromptStore) {
	r.prompts = store
}

// Reason drafts an answer. It never fails: an unparseable reply becomes
// the answer text at confidence 0.5, and a generation error yields an
// empty answer at the same confidence.
func (r *Reasoner) Reason(
	ctx context.Context, question string, bundles []domain.EvidenceBundle, requireCitations bool,
) domain.DraftAnswer {
	if r.llm == nil {
		logger.Degraded("reasoner", "no LLM configured")
		return fallbackDraft("")
	}

	instruction := ""
	schema := draftSchema
	if requireCitations {
		instruction = citationInstruction
		schema = draftCitedSchema
	}

	template := loadPrompt(r.prompts, driven.PromptReasoner, defaultReasonerPrompt)
	prompt := fmt.Sprintf(template, question, FormatEvidence(bundles), instruction)

	reply, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: reasonerTemperature})
	if err != nil {
		logger.Degraded("reasoner", "generate: %v", err)
		return fallbackDraft("")
	}

	switch out := ParseStrict[draftOutput](reply, schema).(type) {
	case Parsed[draftOutput]:
		citations := out.Value.Citations
		if citations == nil {
			citations = []string{}
		}
		return domain.DraftAnswer{
			Text:       out.Value.Answer,
			Confidence: clamp01(out.Value.Confidence),
			Citations:  citations,
			Reasoning:  out.Value.Reasoning,
		}
	case Fallback:
		logger.Degraded("reasoner", "%v", out.Err)
		return fallbackDraft(strings.TrimSpace(out.Raw))
	}
	return fallbackDraft(reply)
}

func fallbackDraft(text string) domain.DraftAnswer {
	return domain.DraftAnswer{
		Text:       text,
		Confidence: fallbackConfidence,
		Citations:  []string{},
		Reasoning:  fallbackReasoning,
		Fallback:   true,
	}
}

// FormatEvidence renders bundles as the Reasoner's evidence context:
// at most three items per sub-task, each cut to 300 characters.
func FormatEvidence(bundles []domain.EvidenceBundle) string {
	var b strings.Builder
	for i, bundle := range bundles {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### Sub-task %d: %s\n", i+1, bundle.SubTask.Text)
		n := len(bundle.Evidence)
		if n > itemsPerSubTask {
			n = itemsPerSubTask
		}
		for j := 0; j < n; j++ {
			item := bundle.Evidence[j]
			fmt.Fprintf(&b, "%d. [relevance: %.2f] %s\n", j+1, item.Score, truncateRunes(item.Chunk.Text, evidenceTextLimit))
		}
	}
	return b.String()
}

// truncateRunes cuts s to limit runes, appending "..." when it was longer.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
