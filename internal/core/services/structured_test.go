package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

func TestParseStrict_Plan(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare object", `{"sub_tasks": ["a", "b"], "strategy": "parallel", "priority": [1, 2]}`},
		{"json fence", "```json\n{\"sub_tasks\": [\"a\", \"b\"], \"strategy\": \"parallel\"}\n```"},
		{"plain fence", "```\n{\"sub_tasks\": [\"a\", \"b\"], \"strategy\": \"parallel\"}\n```"},
		{"surrounding whitespace", "\n\n  {\"sub_tasks\": [\"a\", \"b\"], \"strategy\": \"parallel\"}  \n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := ParseStrict[planOutput](tc.raw, planSchema).(Parsed[planOutput])
			require.True(t, ok, "expected parsed outcome")
			assert.Equal(t, []string{"a", "b"}, out.Value.SubTasks)
			assert.Equal(t, "parallel", out.Value.Strategy)
		})
	}
}

func TestParseStrict_FallbackCases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "Here is my plan: search for things."},
		{"json inside prose", `Sure! {"sub_tasks": ["a"], "strategy": "parallel"} Hope that helps.`},
		{"truncated", `{"sub_tasks": ["a", "b"], "strat`},
		{"missing required", `{"sub_tasks": ["a"]}`},
		{"empty sub tasks", `{"sub_tasks": [], "strategy": "parallel"}`},
		{"unknown strategy", `{"sub_tasks": ["a"], "strategy": "random"}`},
		{"wrong type", `{"sub_tasks": "a", "strategy": "parallel"}`},
		{"array not object", `["a", "b"]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := ParseStrict[planOutput](tc.raw, planSchema).(Fallback)
			require.True(t, ok, "expected fallback outcome")
			assert.Equal(t, tc.raw, out.Raw)
			assert.ErrorIs(t, out.Err, domain.ErrMalformedResponse)
		})
	}
}

func TestParseStrict_Review(t *testing.T) {
	_, ok := ParseStrict[reviewOutput](`{"need_iterate": true, "confidence": 0.4}`, reviewSchema).(Parsed[reviewOutput])
	assert.True(t, ok)

	_, ok = ParseStrict[reviewOutput](`{"need_iterate": true, "confidence": 1.5}`, reviewSchema).(Fallback)
	assert.True(t, ok, "confidence above 1 must be rejected")

	_, ok = ParseStrict[reviewOutput](`{"need_iterate": "yes", "confidence": 0.5}`, reviewSchema).(Fallback)
	assert.True(t, ok, "need_iterate must be boolean")
}

func TestParseStrict_DraftCitations(t *testing.T) {
	raw := `{"answer": "x", "confidence": 0.8}`

	_, ok := ParseStrict[draftOutput](raw, draftSchema).(Parsed[draftOutput])
	assert.True(t, ok)

	_, ok = ParseStrict[draftOutput](raw, draftCitedSchema).(Fallback)
	assert.True(t, ok, "citations are required when requested")
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence(`  {"a":1}  `))
	assert.Equal(t, "```", stripFence("```"))
}
