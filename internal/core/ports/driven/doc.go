// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the research pipeline to function:
//
//   - LLMService: Text generation for planning, reasoning and review
//   - EmbeddingService: Vector embeddings for indexing and retrieval
//   - VectorStore: Nearest-neighbour storage over chunk embeddings
//   - DocumentStore: Document and chunk persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PromptStore: Customisable prompt templates. Without it, built-in prompts are used.
//   - NormaliserRegistry: File parsing. Without it, only raw text can be indexed.
//   - AIConfigValidator: Connectivity checks for settings.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
