package postprocessors

import (
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-research/internal/postprocessors/annotator"
	"github.com/custodia-labs/sercha-research/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("annotator", buildAnnotator)
}

// DefaultPipeline builds the ingestion pipeline: sentence chunking followed
// by document annotation.
func DefaultPipeline(chunkSize int) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	c, err := r.Build("chunker", map[string]any{"chunk_size": chunkSize})
	if err != nil {
		return nil, err
	}
	a, err := r.Build("annotator", nil)
	if err != nil {
		return nil, err
	}
	return NewPipeline(c, a), nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Target characters per chunk (default: 500)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
	}

	return chunker.New(opts...), nil
}

// buildAnnotator creates an annotator processor.
// Supported config keys:
//   - keys ([]string): Document metadata keys copied onto each chunk
func buildAnnotator(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []annotator.Option

	if raw, ok := cfg["keys"].([]any); ok {
		keys := make([]string, 0, len(raw))
		for _, k := range raw {
			if s, ok := k.(string); ok {
				keys = append(keys, s)
			}
		}
		opts = append(opts, annotator.WithKeys(keys...))
	}

	return annotator.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
