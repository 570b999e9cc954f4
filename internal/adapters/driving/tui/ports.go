// Package tui provides an interactive terminal user interface for sercha-research.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Research answers questions.
	Research driving.ResearchService

	// Ingest lists and resets indexed documents. Optional.
	Ingest driving.IngestService

	// Settings manages application settings. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	research driving.ResearchService,
	ingest driving.IngestService,
	settings driving.SettingsService,
) *Ports {
	return &Ports{
		Research: research,
		Ingest:   ingest,
		Settings: settings,
	}
}

// Validate ensures required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Research == nil {
		return ErrMissingResearchService
	}
	return nil
}
