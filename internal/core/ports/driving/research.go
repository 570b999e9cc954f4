package driving

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// ResearchService answers questions over the indexed corpus.
type ResearchService interface {
	// AnswerQuestion runs the iterative plan-retrieve-reason-review pipeline.
	// Business-logic conditions (weak answers, empty evidence) are reported in
	// the result; only infrastructure failures return an error.
	AnswerQuestion(ctx context.Context, question string, opts domain.AnswerOptions) (*domain.ResearchResult, error)

	// Ask answers in a single shot from the top retrieved evidence.
	Ask(ctx context.Context, question string, topK int) (*domain.QuickAnswer, error)

	// DeepResearch produces a multi-angle analysis report for the question.
	DeepResearch(ctx context.Context, question string, topK int) (*domain.DeepResearchResult, error)
}

// ProgressFunc receives orchestrator state changes.
type ProgressFunc func(round int, state domain.SessionState)

// ProgressReporter is implemented by research services that can report
// state transitions while a question is being answered.
type ProgressReporter interface {
	// SetProgress registers a callback. Nil disables reporting.
	SetProgress(fn ProgressFunc)
}
