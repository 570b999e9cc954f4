package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategy_IsValid(t *testing.T) {
	assert.True(t, StrategySequential.IsValid())
	assert.True(t, StrategyParallel.IsValid())
	assert.False(t, Strategy("").IsValid())
	assert.False(t, Strategy("random").IsValid())
}

func TestFallbackPlan(t *testing.T) {
	plan := FallbackPlan("What method does the paper use?")

	require.Len(t, plan.SubTasks, 1)
	assert.Equal(t, "What method does the paper use?", plan.SubTasks[0].Text)
	assert.Equal(t, StrategySequential, plan.Strategy)
	assert.Equal(t, []int{1}, plan.Priorities())
	assert.True(t, plan.Fallback)
}

func TestPlan_Priorities(t *testing.T) {
	plan := Plan{SubTasks: []SubTask{
		{Text: "a", Priority: 2},
		{Text: "b", Priority: 1},
		{Text: "c", Priority: 3},
	}}
	assert.Equal(t, []int{2, 1, 3}, plan.Priorities())
	assert.Empty(t, Plan{}.Priorities())
}

func TestResearchSession_RoundCap(t *testing.T) {
	s := NewResearchSession("s1", "q", 3)
	assert.Equal(t, StatePlanning, s.State)
	assert.Equal(t, 0, s.Round)

	for i := 1; i <= 3; i++ {
		require.True(t, s.BeginRound())
		assert.Equal(t, i, s.Round)
	}
	assert.True(t, s.AtCap())
	assert.False(t, s.BeginRound())
	assert.Equal(t, 3, s.Round)
}

func TestResearchSession_MinimumOneRound(t *testing.T) {
	s := NewResearchSession("s1", "q", 0)
	assert.Equal(t, 1, s.MaxRounds)
	assert.True(t, s.BeginRound())
	assert.False(t, s.BeginRound())
}

func TestResearchSession_Transition(t *testing.T) {
	s := NewResearchSession("s1", "q", 2)
	for _, st := range []SessionState{StateRetrieving, StateReasoning, StateReviewing, StateDone} {
		s.Transition(st)
		assert.Equal(t, st, s.State)
	}
}
