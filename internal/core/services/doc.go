// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The research pipeline is Planner, Retriever, Reasoner and Reviewer,
// driven round by round by the Orchestrator. Every stage that reads model
// output parses it strictly and falls back to a fixed value on failure.
// Services are pure Go with no CGO.
package services
