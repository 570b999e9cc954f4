package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptPlanner decomposes a question into sub-tasks.
	// Placeholders: %s (question), %s (reviewer suggestions block).
	PromptPlanner = "research_planner"

	// PromptReasoner synthesises an answer from evidence.
	// Placeholders: %s (question), %s (evidence context), %s (citation instruction).
	PromptReasoner = "research_reasoner"

	// PromptReviewer asks the model to assess an answer.
	// Placeholders: %s (question), %s (answer), %d (evidence count).
	PromptReviewer = "research_reviewer"

	// PromptQuickAnswer answers directly from retrieved evidence.
	// Placeholders: %s (evidence context), %s (question).
	PromptQuickAnswer = "quick_answer"

	// PromptDeepResearch produces a multi-angle analysis report.
	// Placeholders: %s (evidence context), %s (question).
	PromptDeepResearch = "deep_research"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
// Services implementing this interface can have their prompt templates customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
