package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

// mockResearchService is a mock implementation of driving.ResearchService.
type mockResearchService struct {
	result   *domain.ResearchResult
	quick    *domain.QuickAnswer
	deep     *domain.DeepResearchResult
	err      error
	lastOpts domain.AnswerOptions
	lastTopK int
}

func (m *mockResearchService) AnswerQuestion(
	_ context.Context,
	_ string,
	opts domain.AnswerOptions,
) (*domain.ResearchResult, error) {
	m.lastOpts = opts
	return m.result, m.err
}

func (m *mockResearchService) Ask(_ context.Context, _ string, topK int) (*domain.QuickAnswer, error) {
	m.lastTopK = topK
	return m.quick, m.err
}

func (m *mockResearchService) DeepResearch(_ context.Context, _ string, topK int) (*domain.DeepResearchResult, error) {
	m.lastTopK = topK
	return m.deep, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	summary  *domain.IndexSummary
	docs     []domain.DocumentSummary
	err      error
	lastText string
	lastID   string
	deleted  string
}

func (m *mockIngestService) ProcessDocument(_ context.Context, rawText, sourceID string) (*domain.IndexSummary, error) {
	m.lastText = rawText
	m.lastID = sourceID
	return m.summary, m.err
}

func (m *mockIngestService) IngestFile(_ context.Context, _, _ string) (*domain.IndexSummary, error) {
	return m.summary, m.err
}

func (m *mockIngestService) IngestBatch(_ context.Context, _ []string) (*driving.BatchReport, error) {
	return &driving.BatchReport{}, m.err
}

func (m *mockIngestService) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.docs, m.err
}

func (m *mockIngestService) DeleteDocument(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

func (m *mockIngestService) Reset(_ context.Context) error {
	return m.err
}
