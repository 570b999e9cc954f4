// Package domain defines the core business entities for sercha-research.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested source document
//   - Chunk: The unit of indexing and retrieval within a document
//   - EvidenceItem / EvidenceBundle: Search hits scoped to a sub-task
//   - Plan / SubTask: The Planner's decomposition of a question
//   - DraftAnswer / ReviewVerdict: Reasoner and Reviewer outputs
//   - ResearchSession: The per-question aggregate driven by the orchestrator
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
