package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

const (
	singleTaskPlan = `{"sub_tasks": ["renewable energy sources"], "strategy": "sequential", "priority": [1]}`
	acceptReview   = `{"need_iterate": false, "confidence": 0.9}`
)

var confidentDraft = fmt.Sprintf(`{"answer": %q, "confidence": 0.88, "citations": ["Sub-task 1, item 1"]}`, longAnswer)

type roleMocks struct {
	planner, reasoner, reviewer *mockLLM
}

func (m roleMocks) llms() RoleLLMs {
	return RoleLLMs{Planner: m.planner, Reasoner: m.reasoner, Reviewer: m.reviewer}
}

func newResearch(t *testing.T, index *EvidenceIndex, mocks roleMocks, maxRounds int) *ResearchService {
	t.Helper()
	settings := domain.DefaultAppSettings().Research
	settings.MaxRounds = maxRounds
	return NewResearchService(index, mocks.llms(), settings)
}

// progressLog records state transitions.
type progressLog struct {
	mu     sync.Mutex
	states []string
}

func (p *progressLog) record(round int, state domain.SessionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, fmt.Sprintf("%d:%s", round, state))
}

func TestAnswerQuestion_FiveChunksTopFive(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	require.NoError(t, index.Index(ctx, testChunks("doc", corpus...), nil))

	mocks := roleMocks{
		planner:  newMockLLM(singleTaskPlan),
		reasoner: newMockLLM(confidentDraft),
		reviewer: newMockLLM(acceptReview),
	}
	svc := newResearch(t, index, mocks, 3)

	result, err := svc.AnswerQuestion(ctx, "Which renewable sources are covered?", domain.AnswerOptions{TopK: 5, RequireCitations: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Rounds)
	require.Len(t, result.Evidence, 1)
	assert.LessOrEqual(t, result.Evidence[0].Count, 5)
	assert.Equal(t, 5, result.Evidence[0].Count)
	assert.False(t, result.InsufficientEvidence)
	assert.False(t, result.Verdict.NeedIterate)
	assert.Equal(t, longAnswer, result.Verdict.FinalAnswer)
	assert.LessOrEqual(t, result.Verdict.FinalConfidence, 0.88)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, 5, result.Trace[0].EvidenceCount)
}

func TestAnswerQuestion_EmptyIndexReachesCap(t *testing.T) {
	index, _ := newTestIndex()
	mocks := roleMocks{
		planner:  newMockLLM(singleTaskPlan),
		reasoner: newMockLLM(`{"answer": "The evidence does not cover this.", "confidence": 0.2, "citations": []}`),
		reviewer: newMockLLM(acceptReview),
	}
	svc := newResearch(t, index, mocks, 3)
	progress := &progressLog{}
	svc.SetProgress(progress.record)

	result, err := svc.AnswerQuestion(context.Background(), "Anything?", domain.AnswerOptions{RequireCitations: true})
	require.NoError(t, err)

	assert.True(t, result.InsufficientEvidence)
	assert.Equal(t, 3, result.Rounds)
	assert.Len(t, result.Trace, 3)
	assert.True(t, result.Verdict.NeedIterate, "last verdict is returned even at the cap")
	assert.Contains(t, result.Verdict.Issues, "insufficient evidence (only 0 items)")
	assert.Equal(t, 3, mocks.planner.calls())

	want := []string{}
	for r := 1; r <= 3; r++ {
		for _, s := range []domain.SessionState{domain.StatePlanning, domain.StateRetrieving, domain.StateReasoning, domain.StateReviewing} {
			want = append(want, fmt.Sprintf("%d:%s", r, s))
		}
	}
	want = append(want, "3:DONE")
	assert.Equal(t, want, progress.states)
}

func TestAnswerQuestion_IteratesWithSuggestions(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	require.NoError(t, index.Index(ctx, testChunks("doc", corpus...), nil))

	mocks := roleMocks{
		planner:  newMockLLM(singleTaskPlan),
		reasoner: newMockLLM(confidentDraft),
		reviewer: newMockLLM(
			`{"need_iterate": true, "confidence": 0.5, "issues": ["no numbers"], "suggestions": ["quantify efficiency"]}`,
			acceptReview,
		),
	}
	svc := newResearch(t, index, mocks, 3)

	result, err := svc.AnswerQuestion(ctx, "How efficient are panels?", domain.AnswerOptions{TopK: 3, RequireCitations: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Rounds)
	assert.False(t, result.Verdict.NeedIterate)
	require.Equal(t, 2, mocks.planner.calls())
	assert.NotContains(t, mocks.planner.prompt(0), "quantify efficiency")
	assert.Contains(t, mocks.planner.prompt(1), "- quantify efficiency")
	assert.InDelta(t, 0.5, result.Trace[0].Verdict.FinalConfidence, 1e-9)
}

func TestAnswerQuestion_IterationBound(t *testing.T) {
	for _, maxRounds := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("max %d", maxRounds), func(t *testing.T) {
			index, _ := newTestIndex()
			mocks := roleMocks{
				planner:  newMockLLM("not json"),
				reasoner: newMockLLM("not json"),
				reviewer: newMockLLM(`{"need_iterate": true, "confidence": 0.1}`),
			}
			svc := newResearch(t, index, mocks, 3)

			result, err := svc.AnswerQuestion(context.Background(), "q", domain.AnswerOptions{MaxRounds: maxRounds})
			require.NoError(t, err)
			assert.Equal(t, maxRounds, result.Rounds)
			assert.Len(t, result.Trace, maxRounds)
			assert.True(t, result.Trace[0].Plan.Fallback)
			assert.True(t, result.Trace[0].Draft.Fallback)
		})
	}
}

func TestAnswerQuestion_ConfidenceNeverExceedsDraft(t *testing.T) {
	ctx := context.Background()
	index, _ := newTestIndex()
	require.NoError(t, index.Index(ctx, testChunks("doc", corpus...), nil))

	mocks := roleMocks{
		planner:  newMockLLM(singleTaskPlan),
		reasoner: newMockLLM(confidentDraft),
		reviewer: newMockLLM(`{"need_iterate": false, "confidence": 1.0}`),
	}
	result, err := newResearch(t, index, mocks, 3).AnswerQuestion(ctx, "q", domain.AnswerOptions{})
	require.NoError(t, err)

	for _, tr := range result.Trace {
		assert.LessOrEqual(t, tr.Verdict.FinalConfidence, tr.Draft.Confidence)
	}
}

func TestAnswerQuestion_Errors(t *testing.T) {
	ctx := context.Background()
	mocks := roleMocks{
		planner:  newMockLLM(singleTaskPlan),
		reasoner: newMockLLM(confidentDraft),
		reviewer: newMockLLM(acceptReview),
	}

	t.Run("empty question", func(t *testing.T) {
		index, _ := newTestIndex()
		_, err := newResearch(t, index, mocks, 3).AnswerQuestion(ctx, "  ", domain.AnswerOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("no llm", func(t *testing.T) {
		index, _ := newTestIndex()
		svc := NewResearchService(index, RoleLLMs{}, domain.DefaultAppSettings().Research)
		_, err := svc.AnswerQuestion(ctx, "q", domain.AnswerOptions{})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("no embedder", func(t *testing.T) {
		index := NewEvidenceIndex(nil, brokenStore{})
		_, err := newResearch(t, index, mocks, 3).AnswerQuestion(ctx, "q", domain.AnswerOptions{})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("store unavailable", func(t *testing.T) {
		index := NewEvidenceIndex(newMockEmbedder(), brokenStore{})
		_, err := newResearch(t, index, mocks, 3).AnswerQuestion(ctx, "q", domain.AnswerOptions{})
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("cancelled", func(t *testing.T) {
		index, _ := newTestIndex()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		result, err := newResearch(t, index, mocks, 3).AnswerQuestion(cctx, "q", domain.AnswerOptions{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, result)
	})
}

func TestAnswerQuestion_CancelDuringRound(t *testing.T) {
	index, _ := newTestIndex()
	mocks := roleMocks{
		planner:  newMockLLM(singleTaskPlan),
		reasoner: newMockLLM(confidentDraft),
		reviewer: newMockLLM(acceptReview),
	}
	svc := newResearch(t, index, mocks, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.SetProgress(func(_ int, state domain.SessionState) {
		if state == domain.StateReasoning {
			cancel()
		}
	})

	_, err := svc.AnswerQuestion(ctx, "q", domain.AnswerOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mocks.reviewer.calls(), "no stage starts after cancellation")
}
