package services

import (
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Default prompt templates. A PromptStore may override any of them.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const (
	defaultPlannerPrompt = `You are a research planning expert. Break the research question below into executable sub-tasks for document retrieval.

Research question: %s
%s
Produce 3-5 specific, self-contained retrieval queries. Choose "parallel" when the sub-tasks are independent and "sequential" when later ones depend on earlier ones. Rank them with priority 1 as most important.

Reply with ONLY a JSON object, no prose:
{
  "sub_tasks": ["task 1", "task 2", "task 3"],
  "strategy": "parallel",
  "priority": [1, 2, 3]
}`

	defaultReasonerPrompt = `You are a scientific literature analyst. Answer the question using only the evidence provided.

Question: %s

Evidence:
%s

Requirements:
1. Give an accurate answer grounded in the evidence.
2. If the evidence is insufficient, say so explicitly.
3. Give a confidence score between 0 and 1.
%s
Reply with ONLY a JSON object, no prose:
{
  "answer": "detailed answer",
  "confidence": 0.0,
  "reasoning": "how the evidence supports the answer",
  "citations": ["Sub-task 1, item 2"]
}`

	defaultReviewerPrompt = `You are a reviewer of research answers. Assess the quality of the answer below.

Question: %s

Answer: %s

Evidence items available: %d

Assess whether the answer fully addresses the question, whether it is supported by enough evidence, and whether it has logical problems. Give a confidence score between 0 and 1 and decide whether the answer should be regenerated.

Reply with ONLY a JSON object, no prose:
{
  "need_iterate": false,
  "confidence": 0.0,
  "issues": ["issue"],
  "suggestions": ["suggestion"]
}`

	defaultQuickAnswerPrompt = `Answer the question using the evidence below. Cite evidence by its label, e.g. [Evidence 2]. If the evidence does not contain the answer, say so.

%s

Question: %s

Answer:`

	defaultDeepResearchPrompt = `You are a senior research analyst. Using the evidence below, write an in-depth analysis of the question.

%s

Question: %s

Cover each of these angles in its own section:
1. Core findings
2. Key evidence
3. Methodology
4. Contributions
5. Limitations
6. Future directions
7. Applications

Cite evidence by its label, e.g. [Evidence 3].`

	citationInstruction = "4. Cite the evidence each claim relies on in \"citations\".\n"
)

// DefaultPrompts returns the built-in prompt templates keyed by prompt name.
// File-backed prompt stores seed user-editable files from it.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptPlanner:      defaultPlannerPrompt,
		driven.PromptReasoner:     defaultReasonerPrompt,
		driven.PromptReviewer:     defaultReviewerPrompt,
		driven.PromptQuickAnswer:  defaultQuickAnswerPrompt,
		driven.PromptDeepResearch: defaultDeepResearchPrompt,
	}
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}
