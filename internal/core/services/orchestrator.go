package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// DefaultMaxRounds caps research iterations.
const DefaultMaxRounds = 3

// Orchestrator drives a research session through
// PLANNING, RETRIEVING, REASONING and REVIEWING until the verdict is
// accepted or the round cap is hit.
type Orchestrator struct {
	planner   *Planner
	retriever *Retriever
	reasoner  *Reasoner
	reviewer  *Reviewer
	maxRounds int
	progress  driving.ProgressFunc
}

// NewOrchestrator wires the four stages. Non-positive maxRounds uses DefaultMaxRounds.
func NewOrchestrator(planner *Planner, retriever *Retriever, reasoner *Reasoner, reviewer *Reviewer, maxRounds int) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Orchestrator{
		planner:   planner,
		retriever: retriever,
		reasoner:  reasoner,
		reviewer:  reviewer,
		maxRounds: maxRounds,
	}
}

// SetProgress registers a state-change callback. Nil disables reporting.
func (o *Orchestrator) SetProgress(fn driving.ProgressFunc) {
	o.progress = fn
}

// Run answers question. The context is checked between stages; a
// cancelled context returns ctx.Err() and no partial result. Only a store
// failure in retrieval is returned as an error.
func (o *Orchestrator) Run(ctx context.Context, question string, opts domain.AnswerOptions) (*domain.ResearchResult, error) {
	maxRounds := o.maxRounds
	if opts.MaxRounds > 0 {
		maxRounds = opts.MaxRounds
	}
	sess := domain.NewResearchSession(uuid.NewString(), question, maxRounds)
	logger.Section("Research Session")
	logger.Debug("Session %s: %q (max %d rounds)", sess.ID, question, sess.MaxRounds)

	var suggestions []string
	for sess.BeginRound() {
		started := time.Now()

		if err := o.enter(ctx, sess, domain.StatePlanning); err != nil {
			return nil, err
		}
		plan := o.planner.Plan(ctx, question, suggestions)

		if err := o.enter(ctx, sess, domain.StateRetrieving); err != nil {
			return nil, err
		}
		bundles, err := o.retriever.Retrieve(ctx, plan, opts.TopK)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("Session %s aborted in round %d: %v", sess.ID, sess.Round, err)
			return nil, err
		}
		sess.Bundles = bundles

		if err := o.enter(ctx, sess, domain.StateReasoning); err != nil {
			return nil, err
		}
		draft := o.reasoner.Reason(ctx, question, bundles, opts.RequireCitations)

		if err := o.enter(ctx, sess, domain.StateReviewing); err != nil {
			return nil, err
		}
		verdict := o.reviewer.Review(ctx, question, draft, bundles)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sess.Verdict = &verdict

		sess.Trace = append(sess.Trace, domain.RoundTrace{
			Round:         sess.Round,
			Plan:          plan,
			EvidenceCount: domain.TotalEvidence(bundles),
			Draft:         draft,
			Verdict:       verdict,
			Duration:      time.Since(started),
		})
		logger.Info("Round %d: confidence %.2f, iterate=%t", sess.Round, verdict.FinalConfidence, verdict.NeedIterate)

		if !verdict.NeedIterate || sess.AtCap() {
			break
		}
		suggestions = verdict.Suggestions
	}

	sess.Transition(domain.StateDone)
	o.report(sess)

	result := &domain.ResearchResult{
		Question:             question,
		Rounds:               sess.Round,
		Evidence:             sess.Bundles,
		Trace:                sess.Trace,
		InsufficientEvidence: domain.TotalEvidence(sess.Bundles) == 0,
	}
	if sess.Verdict != nil {
		result.Verdict = *sess.Verdict
	}
	return result, nil
}

// enter checks for cancellation, then moves the session to state.
func (o *Orchestrator) enter(ctx context.Context, sess *domain.ResearchSession, state domain.SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sess.Transition(state)
	o.report(sess)
	return nil
}

func (o *Orchestrator) report(sess *domain.ResearchSession) {
	logger.Debug("Round %d: %s", sess.Round, sess.State)
	if o.progress != nil {
		o.progress(sess.Round, sess.State)
	}
}
