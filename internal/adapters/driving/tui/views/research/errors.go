package research

import "errors"

// Error definitions for the research view.
var (
	// ErrNoResearchService indicates that no research service was provided.
	ErrNoResearchService = errors.New("research service is required")
)
