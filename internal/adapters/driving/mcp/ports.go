package mcp

import (
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Research answers questions.
	Research driving.ResearchService

	// Ingest indexes text and lists documents. Optional; without it the
	// index_text and list_documents tools report an error.
	Ingest driving.IngestService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Research == nil {
		return ErrMissingResearchService
	}
	return nil
}
