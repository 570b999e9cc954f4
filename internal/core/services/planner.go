package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// Planner tuning.
const (
	plannerTemperature = 0.7
	maxSubTasks        = 5
)

// planOutput is the Planner's JSON reply.
type planOutput struct {
	SubTasks []string `json:"sub_tasks"`
	Strategy string   `json:"strategy"`
	Priority []int    `json:"priority"`
}

// Planner decomposes a research question into sub-tasks.
type Planner struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// Ensure Planner accepts prompt stores.
var _ driven.PromptStoreAware = (*Planner)(nil)

// NewPlanner creates a planner.
func NewPlanner(llm driven.LLMService) *Planner {
	return &Planner{llm: llm}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (p *Planner) SetPromptStore(store driven.PromptStore) {
	p.prompts = store
}

// Plan returns a plan for question. It never fails: generation errors and
// unusable replies yield domain.FallbackPlan.
func (p *Planner) Plan(ctx context.Context, question string, suggestions []string) domain.Plan {
	if p.llm == nil {
		logger.Degraded("planner", "no LLM configured")
		return domain.FallbackPlan(question)
	}

	template := loadPrompt(p.prompts, driven.PromptPlanner, defaultPlannerPrompt)
	prompt := fmt.Sprintf(template, question, suggestionBlock(suggestions))

	reply, err := p.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: plannerTemperature})
	if err != nil {
		logger.Degraded("planner", "generate: %v", err)
		return domain.FallbackPlan(question)
	}

	switch out := ParseStrict[planOutput](reply, planSchema).(type) {
	case Parsed[planOutput]:
		plan, ok := buildPlan(out.Value)
		if !ok {
			logger.Degraded("planner", "reply had no usable sub-tasks")
			return domain.FallbackPlan(question)
		}
		logger.Debug("Plan: %d sub-tasks, %s", len(plan.SubTasks), plan.Strategy)
		return plan
	case Fallback:
		logger.Degraded("planner", "%v", out.Err)
	}
	return domain.FallbackPlan(question)
}

// buildPlan normalises a parsed reply. Blank sub-tasks are dropped, the
// list is capped at maxSubTasks, and a priority list that does not line up
// with the sub-tasks is replaced by 1..n.
func buildPlan(out planOutput) (domain.Plan, bool) {
	type entry struct {
		text     string
		priority int
		hasPrio  bool
	}

	aligned := len(out.Priority) == len(out.SubTasks)
	var entries []entry
	for i, t := range out.SubTasks {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		e := entry{text: t}
		if aligned {
			e.priority, e.hasPrio = out.Priority[i], true
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return domain.Plan{}, false
	}
	if len(entries) > maxSubTasks {
		// Keep the most important sub-tasks, then restore plan order.
		idx := make([]int, len(entries))
		for i := range idx {
			idx[i] = i
		}
		if aligned {
			sort.SliceStable(idx, func(a, b int) bool {
				return entries[idx[a]].priority < entries[idx[b]].priority
			})
		}
		idx = idx[:maxSubTasks]
		sort.Ints(idx)
		kept := make([]entry, 0, maxSubTasks)
		for _, i := range idx {
			kept = append(kept, entries[i])
		}
		entries = kept
	}

	plan := domain.Plan{
		SubTasks: make([]domain.SubTask, len(entries)),
		Strategy: domain.Strategy(out.Strategy),
	}
	valid := aligned
	for _, e := range entries {
		if !e.hasPrio || e.priority < 1 {
			valid = false
		}
	}
	for i, e := range entries {
		prio := i + 1
		if valid {
			prio = e.priority
		}
		plan.SubTasks[i] = domain.SubTask{Text: e.text, Priority: prio}
	}
	return plan, true
}

// suggestionBlock renders reviewer suggestions for the planning prompt.
func suggestionBlock(suggestions []string) string {
	var b strings.Builder
	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("\nA previous answer was reviewed. Address these suggestions:\n")
		}
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String()
}
