package domain

// EvidenceItem is a single search hit presented to the reasoning stage.
//
// Score follows one convention throughout the system: higher means more
// relevant. Stores report cosine distance; the evidence index converts it
// with score = 1 - distance, which is the cosine similarity in [-1, 1].
type EvidenceItem struct {
	// Chunk is the matched chunk. It always refers to indexed content.
	Chunk Chunk

	// Score is the relevance score (higher is better).
	Score float64

	// Metadata is the payload stored alongside the chunk at index time.
	Metadata map[string]any
}

// EvidenceBundle groups the evidence retrieved for one sub-task.
type EvidenceBundle struct {
	// SubTask is the sub-task the evidence was retrieved for.
	SubTask SubTask

	// Evidence is ordered best first.
	Evidence []EvidenceItem

	// Count is len(Evidence).
	Count int
}

// NewEvidenceBundle builds a bundle and fills in Count.
func NewEvidenceBundle(task SubTask, evidence []EvidenceItem) EvidenceBundle {
	if evidence == nil {
		evidence = []EvidenceItem{}
	}
	return EvidenceBundle{
		SubTask:  task,
		Evidence: evidence,
		Count:    len(evidence),
	}
}

// TotalEvidence returns the number of evidence items across all bundles.
func TotalEvidence(bundles []EvidenceBundle) int {
	total := 0
	for _, b := range bundles {
		total += b.Count
	}
	return total
}
