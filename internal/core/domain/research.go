package domain

import "time"

// Strategy controls how the Retriever dispatches sub-task searches.
type Strategy string

// Available retrieval strategies.
const (
	// StrategySequential runs sub-tasks one at a time in priority order.
	StrategySequential Strategy = "sequential"

	// StrategyParallel runs sub-task searches concurrently.
	StrategyParallel Strategy = "parallel"
)

// IsValid returns true if the strategy is recognised.
func (s Strategy) IsValid() bool {
	return s == StrategySequential || s == StrategyParallel
}

// String returns the string representation.
func (s Strategy) String() string {
	return string(s)
}

// SubTask is a narrower retrieval query derived from the question.
type SubTask struct {
	// Text is the sub-task query.
	Text string

	// Priority orders sub-tasks under the sequential strategy (lower first).
	Priority int
}

// Plan is the Planner's decomposition of a research question.
type Plan struct {
	// SubTasks are the ordered sub-tasks.
	SubTasks []SubTask

	// Strategy selects parallel or sequential retrieval.
	Strategy Strategy

	// Fallback is true when the plan is the single-task degraded plan.
	Fallback bool
}

// FallbackPlan returns the mandatory degraded plan: the question verbatim,
// sequential, priority 1.
func FallbackPlan(question string) Plan {
	return Plan{
		SubTasks: []SubTask{{Text: question, Priority: 1}},
		Strategy: StrategySequential,
		Fallback: true,
	}
}

// Priorities returns the priority list aligned with SubTasks.
func (p Plan) Priorities() []int {
	out := make([]int, len(p.SubTasks))
	for i, t := range p.SubTasks {
		out[i] = t.Priority
	}
	return out
}

// DraftAnswer is the Reasoner's output for one round.
type DraftAnswer struct {
	// Text is the answer text.
	Text string

	// Confidence is the model-asserted confidence in [0, 1].
	Confidence float64

	// Citations lists the evidence the answer relies on.
	Citations []string

	// Reasoning is the model's reasoning trace.
	Reasoning string

	// Fallback is true when the model output could not be parsed.
	Fallback bool
}

// CheckResult is the outcome of one review check.
type CheckResult struct {
	// Name identifies the check ("rules" or "model").
	Name string

	// NeedIterate requests another round.
	NeedIterate bool

	// Confidence is the check's own confidence estimate. The rule check
	// reports the draft confidence unchanged.
	Confidence float64

	// Issues lists problems found.
	Issues []string

	// Suggestions lists improvements for the next round.
	Suggestions []string

	// Fallback is true when a model check could not be parsed.
	Fallback bool
}

// ReviewVerdict is the Reviewer's structured output.
type ReviewVerdict struct {
	// FinalAnswer is the answer text under review.
	FinalAnswer string

	// FinalConfidence never exceeds the Reasoner confidence.
	FinalConfidence float64

	// NeedIterate requests another round.
	NeedIterate bool

	// Issues is the concatenation of both checks' issues.
	Issues []string

	// Suggestions feed the next round's planning prompt.
	Suggestions []string

	// Citations are carried over from the draft.
	Citations []string
}

// SessionState is a state of the research orchestrator.
type SessionState string

// Orchestrator states.
const (
	StatePlanning   SessionState = "PLANNING"
	StateRetrieving SessionState = "RETRIEVING"
	StateReasoning  SessionState = "REASONING"
	StateReviewing  SessionState = "REVIEWING"
	StateDone       SessionState = "DONE"
)

// RoundTrace records what happened in one round.
type RoundTrace struct {
	// Round is the 1-based round number.
	Round int

	// Plan is the plan used for the round.
	Plan Plan

	// EvidenceCount is the total evidence retrieved.
	EvidenceCount int

	// Draft is the Reasoner output.
	Draft DraftAnswer

	// Verdict is the Reviewer output.
	Verdict ReviewVerdict

	// Duration is the wall time of the round.
	Duration time.Duration
}

// ResearchSession is the top-level aggregate for one question.
// It is owned by the orchestrator for the duration of a call.
type ResearchSession struct {
	// ID identifies the session in logs.
	ID string

	// Question is the research question.
	Question string

	// Round is the current round counter (monotonic, bounded by MaxRounds).
	Round int

	// MaxRounds is the iteration cap.
	MaxRounds int

	// State is the current orchestrator state.
	State SessionState

	// Verdict is the latest review verdict.
	Verdict *ReviewVerdict

	// Bundles is the latest round's evidence.
	Bundles []EvidenceBundle

	// Trace holds one entry per completed round.
	Trace []RoundTrace

	// StartedAt is when the session was created.
	StartedAt time.Time
}

// NewResearchSession creates a session in the PLANNING state.
func NewResearchSession(id, question string, maxRounds int) *ResearchSession {
	if maxRounds < 1 {
		maxRounds = 1
	}
	return &ResearchSession{
		ID:        id,
		Question:  question,
		MaxRounds: maxRounds,
		State:     StatePlanning,
		StartedAt: time.Now(),
	}
}

// Transition moves the session to the next state.
func (s *ResearchSession) Transition(next SessionState) {
	s.State = next
}

// BeginRound advances the round counter. It returns false when the cap
// has already been reached.
func (s *ResearchSession) BeginRound() bool {
	if s.Round >= s.MaxRounds {
		return false
	}
	s.Round++
	return true
}

// AtCap reports whether the round counter has reached MaxRounds.
func (s *ResearchSession) AtCap() bool {
	return s.Round >= s.MaxRounds
}

// ResearchResult is returned by the orchestrator when it reaches DONE.
type ResearchResult struct {
	// Question is the original question.
	Question string

	// Verdict is the final review verdict.
	Verdict ReviewVerdict

	// Rounds is the number of rounds executed.
	Rounds int

	// InsufficientEvidence is true when the final round found no evidence.
	InsufficientEvidence bool

	// Evidence is the final round's evidence.
	Evidence []EvidenceBundle

	// Trace holds one entry per round.
	Trace []RoundTrace
}

// AnswerOptions configures AnswerQuestion.
type AnswerOptions struct {
	// TopK is the number of evidence items per sub-task.
	TopK int

	// RequireCitations asks the Reasoner for citations.
	RequireCitations bool

	// MaxRounds overrides the configured iteration cap when positive.
	MaxRounds int
}

// Citation is a display reference to one piece of evidence.
type Citation struct {
	// Label is the evidence label, e.g. "Evidence 1".
	Label string

	// Excerpt is a short prefix of the chunk text.
	Excerpt string

	// Score is the relevance score.
	Score float64

	// SourceID is the document the chunk came from.
	SourceID string
}

// QuickAnswer is the result of a single-shot question.
type QuickAnswer struct {
	// Answer is the generated answer.
	Answer string

	// Citations reference the evidence used.
	Citations []Citation
}

// DeepResearchResult is the output of a deep research analysis.
type DeepResearchResult struct {
	// Analysis is the generated analysis report.
	Analysis string

	// EvidenceUsed is the evidence that was placed in context.
	EvidenceUsed []EvidenceItem
}
