package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// TestMode_String tests all Mode string representations
func TestMode_String(t *testing.T) {
	tests := []struct {
		mode     Mode
		expected string
	}{
		{ModeResearch, "research"},
		{ModeQuick, "quick"},
		{ModeDeep, "deep"},
		{Mode(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.mode.String())
		})
	}
}

// TestMode_Next tests that modes cycle back to research
func TestMode_Next(t *testing.T) {
	assert.Equal(t, ModeQuick, ModeResearch.Next())
	assert.Equal(t, ModeDeep, ModeQuick.Next())
	assert.Equal(t, ModeResearch, ModeDeep.Next())
}

// TestViewType_String tests all ViewType string representations
func TestViewType_String(t *testing.T) {
	tests := []struct {
		name     string
		view     ViewType
		expected string
	}{
		{"ViewMenu", ViewMenu, "menu"},
		{"ViewResearch", ViewResearch, "research"},
		{"ViewDocuments", ViewDocuments, "documents"},
		{"ViewHelp", ViewHelp, "help"},
		{"ViewSettings", ViewSettings, "settings"},
		{"UnknownView", ViewType(99), "unknown"},
		{"NegativeView", ViewType(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.view.String())
		})
	}
}

// TestResearchCompleted tests the ResearchCompleted message type
func TestResearchCompleted(t *testing.T) {
	t.Run("with research result", func(t *testing.T) {
		result := &domain.ResearchResult{Question: "why?", Rounds: 2}
		msg := ResearchCompleted{Question: "why?", Result: result}

		require.NotNil(t, msg.Result)
		assert.Equal(t, 2, msg.Result.Rounds)
		assert.Nil(t, msg.Quick)
		assert.Nil(t, msg.Deep)
	})

	t.Run("with error", func(t *testing.T) {
		msg := ResearchCompleted{Question: "why?", Err: domain.ErrInsufficientEvidence}

		assert.ErrorIs(t, msg.Err, domain.ErrInsufficientEvidence)
		assert.Nil(t, msg.Result)
	})
}

// TestStageChanged tests the StageChanged message type
func TestStageChanged(t *testing.T) {
	msg := StageChanged{Round: 3, State: domain.StateReviewing}

	assert.Equal(t, 3, msg.Round)
	assert.Equal(t, domain.StateReviewing, msg.State)
}

// TestDocumentsLoaded tests the DocumentsLoaded message type
func TestDocumentsLoaded(t *testing.T) {
	docs := []domain.DocumentSummary{{ID: "doc_1", ChunkCount: 3}, {ID: "doc_2", ChunkCount: 1}}
	msg := DocumentsLoaded{Documents: docs}

	assert.Len(t, msg.Documents, 2)
	assert.NoError(t, msg.Err)
}

// TestDocumentDeleted tests the DocumentDeleted message type
func TestDocumentDeleted(t *testing.T) {
	msg := DocumentDeleted{ID: "doc_1", Err: errors.New("locked")}

	assert.Equal(t, "doc_1", msg.ID)
	assert.EqualError(t, msg.Err, "locked")
}

// TestErrorOccurred tests the ErrorOccurred message type
func TestErrorOccurred(t *testing.T) {
	baseErr := errors.New("base error")
	msg := ErrorOccurred{Err: errors.Join(baseErr, errors.New("additional context"))}

	assert.ErrorIs(t, msg.Err, baseErr)
	assert.Contains(t, msg.Err.Error(), "additional context")
}
