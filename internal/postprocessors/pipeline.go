// Package postprocessors turns parsed documents into indexable chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// Pipeline runs PostProcessors in order. The first stage receives nil
// chunks and creates them; later stages refine them.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a pipeline that runs processors in the order given.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs doc through every stage. Chunks leave the pipeline owned by
// doc: an empty SourceID is set to doc.ID and a foreign one is an error,
// since evidence is replaced and deleted by source.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
		logger.Debug("%s: %s produced %d chunks", doc.ID, processor.Name(), len(chunks))
	}

	for i := range chunks {
		switch chunks[i].SourceID {
		case "":
			chunks[i].SourceID = doc.ID
		case doc.ID:
		default:
			return nil, fmt.Errorf("chunk %s belongs to %s, not %s", chunks[i].ID, chunks[i].SourceID, doc.ID)
		}
	}
	return chunks, nil
}

// Add appends a stage.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
