package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Planning, reasoning and model review all require it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Indexing and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the vector or document store failed.
	// It is fatal for the current research session.
	ErrStoreUnavailable = errors.New("evidence store unavailable")

	// ErrInsufficientEvidence indicates retrieval produced no evidence.
	ErrInsufficientEvidence = errors.New("insufficient evidence")

	// ErrMalformedResponse indicates model output did not match the expected schema.
	// Stages recover from it locally with their fallback value.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrRetriesExhausted indicates a call failed on every permitted attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrDimensionMismatch indicates a vector does not match the store dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ProviderError is a non-success HTTP response from a model provider.
type ProviderError struct {
	// Provider is the adapter name, e.g. "openai".
	Provider string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the provider's error body or message.
	Message string
}

// Error implements error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports whether the failure is worth retrying (429 or 5xx).
func (e *ProviderError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Unwrap maps 429 responses onto ErrRateLimited.
func (e *ProviderError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}
