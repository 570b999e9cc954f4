package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/services"
)

// errNoIngest is returned by tools that need the ingest port.
var errNoIngest = errors.New("ingestion is not available on this server")

// AnswerInput is the input schema for the answer_question tool.
type AnswerInput struct {
	Question         string `json:"question" jsonschema:"the research question to answer"`
	TopK             int    `json:"top_k,omitempty" jsonschema:"evidence items per sub-task (default from settings)"`
	MaxRounds        int    `json:"max_rounds,omitempty" jsonschema:"iteration cap override"`
	RequireCitations *bool  `json:"require_citations,omitempty" jsonschema:"ask the model to cite evidence (default true)"`
}

// AnswerOutput is the output schema for the answer_question tool.
type AnswerOutput struct {
	Answer               string   `json:"answer"`
	Confidence           float64  `json:"confidence"`
	Rounds               int      `json:"rounds"`
	NeedIterate          bool     `json:"need_iterate"`
	InsufficientEvidence bool     `json:"insufficient_evidence"`
	EvidenceCount        int      `json:"evidence_count"`
	Issues               []string `json:"issues,omitempty"`
	Suggestions          []string `json:"suggestions,omitempty"`
	Citations            []string `json:"citations,omitempty"`
}

// DeepResearchInput is the input schema for the deep_research tool.
type DeepResearchInput struct {
	Question string `json:"question" jsonschema:"the topic or question to analyse"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"evidence items placed in context (default 10)"`
}

// DeepResearchOutput is the output schema for the deep_research tool.
type DeepResearchOutput struct {
	Analysis string           `json:"analysis"`
	Evidence []EvidenceOutput `json:"evidence"`
}

// EvidenceOutput is one evidence item.
type EvidenceOutput struct {
	ChunkID  string  `json:"chunk_id"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
	Excerpt  string  `json:"excerpt"`
}

// IndexTextInput is the input schema for the index_text tool.
type IndexTextInput struct {
	Text     string `json:"text" jsonschema:"the raw text to index"`
	SourceID string `json:"source_id" jsonschema:"identifier of the document the text belongs to; re-indexing replaces it"`
}

// IndexTextOutput is the output schema for the index_text tool.
type IndexTextOutput struct {
	DocumentID    string `json:"document_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// DeleteDocumentInput is the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"identifier of the document to remove"`
}

// DeleteDocumentOutput is the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// ListDocumentsInput is the (empty) input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is one indexed document.
type DocumentOutput struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "answer_question",
		Description: "Answer a question over the indexed documents. Plans sub-queries, " +
			"retrieves evidence, drafts an answer and reviews it, iterating when the answer is weak.",
	}, s.handleAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "deep_research",
		Description: "Produce a multi-angle analysis report from the most relevant evidence",
	}, s.handleDeepResearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_text",
		Description: "Chunk, embed and index raw text under a source id",
	}, s.handleIndexText)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and all of its evidence from the index",
	}, s.handleDeleteDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List indexed documents with their chunk counts",
	}, s.handleListDocuments)
}

// handleAnswer handles the answer_question tool invocation.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AnswerOutput{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	opts := domain.AnswerOptions{
		TopK:             input.TopK,
		MaxRounds:        input.MaxRounds,
		RequireCitations: true,
	}
	if input.RequireCitations != nil {
		opts.RequireCitations = *input.RequireCitations
	}

	result, err := s.ports.Research.AnswerQuestion(ctx, input.Question, opts)
	if err != nil {
		return nil, AnswerOutput{}, err
	}

	v := result.Verdict
	return nil, AnswerOutput{
		Answer:               v.FinalAnswer,
		Confidence:           v.FinalConfidence,
		Rounds:               result.Rounds,
		NeedIterate:          v.NeedIterate,
		InsufficientEvidence: result.InsufficientEvidence,
		EvidenceCount:        domain.TotalEvidence(result.Evidence),
		Issues:               v.Issues,
		Suggestions:          v.Suggestions,
		Citations:            v.Citations,
	}, nil
}

// handleDeepResearch handles the deep_research tool invocation.
func (s *Server) handleDeepResearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeepResearchInput,
) (*mcp.CallToolResult, DeepResearchOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, DeepResearchOutput{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	result, err := s.ports.Research.DeepResearch(ctx, input.Question, input.TopK)
	if err != nil {
		return nil, DeepResearchOutput{}, err
	}

	citations := services.Citations(result.EvidenceUsed)
	output := DeepResearchOutput{
		Analysis: result.Analysis,
		Evidence: make([]EvidenceOutput, len(result.EvidenceUsed)),
	}
	for i, item := range result.EvidenceUsed {
		output.Evidence[i] = EvidenceOutput{
			ChunkID:  item.Chunk.ID,
			SourceID: item.Chunk.SourceID,
			Score:    item.Score,
			Excerpt:  citations[i].Excerpt,
		}
	}

	return nil, output, nil
}

// handleIndexText handles the index_text tool invocation.
func (s *Server) handleIndexText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexTextInput,
) (*mcp.CallToolResult, IndexTextOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IndexTextOutput{}, errNoIngest
	}

	summary, err := s.ports.Ingest.ProcessDocument(ctx, input.Text, input.SourceID)
	if err != nil {
		return nil, IndexTextOutput{}, err
	}

	return nil, IndexTextOutput{
		DocumentID:    summary.DocumentID,
		ChunksIndexed: summary.ChunksIndexed,
	}, nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	if s.ports.Ingest == nil {
		return nil, DeleteDocumentOutput{}, errNoIngest
	}

	if err := s.ports.Ingest.DeleteDocument(ctx, input.DocumentID); err != nil {
		return nil, DeleteDocumentOutput{}, err
	}
	return nil, DeleteDocumentOutput{DocumentID: input.DocumentID, Deleted: true}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.listDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	return nil, ListDocumentsOutput{Documents: docs, Count: len(docs)}, nil
}

// listDocuments converts the ingest listing into output records.
func (s *Server) listDocuments(ctx context.Context) ([]DocumentOutput, error) {
	if s.ports.Ingest == nil {
		return nil, errNoIngest
	}

	docs, err := s.ports.Ingest.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	out := make([]DocumentOutput, len(docs))
	for i, d := range docs {
		out[i] = DocumentOutput{
			ID:         d.ID,
			Title:      d.Title,
			URI:        d.URI,
			ChunkCount: d.ChunkCount,
			CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return out, nil
}
