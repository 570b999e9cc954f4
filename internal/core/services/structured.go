package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

// Outcome is the result of a strict structured parse: Parsed or Fallback.
type Outcome[T any] interface {
	outcome()
}

// Parsed carries a value that passed schema validation.
type Parsed[T any] struct {
	Value T
}

// Fallback carries the raw model text that could not be parsed.
type Fallback struct {
	Raw string
	Err error
}

func (Parsed[T]) outcome() {}
func (Fallback) outcome()  {}

// ParseStrict decodes raw model output against schema into T.
//
// The whole reply must be one JSON object, optionally wrapped in a single
// Markdown code fence. No attempt is made to find JSON embedded in prose.
func ParseStrict[T any](raw string, schema *jsonschema.Resolved) Outcome[T] {
	body := stripFence(raw)

	var instance any
	if err := json.Unmarshal([]byte(body), &instance); err != nil {
		return Fallback{Raw: raw, Err: fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)}
	}
	if err := schema.Validate(instance); err != nil {
		return Fallback{Raw: raw, Err: fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)}
	}

	var value T
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		return Fallback{Raw: raw, Err: fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)}
	}
	return Parsed[T]{Value: value}
}

// stripFence removes one surrounding ``` or ```json fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	s = s[nl+1:]
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// mustResolve resolves a package-level schema literal.
func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	r, err := s.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("resolve schema: %v", err))
	}
	return r
}

func ptr[T any](v T) *T { return &v }

// stringList returns a fresh schema; a schema value may appear only once
// in a tree.
func stringList() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:  "array",
		Items: &jsonschema.Schema{Type: "string"},
	}
}

// planSchema describes the Planner reply.
var planSchema = mustResolve(&jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"sub_tasks": {
			Type:     "array",
			Items:    &jsonschema.Schema{Type: "string"},
			MinItems: ptr(1),
		},
		"strategy": {
			Type: "string",
			Enum: []any{string(domain.StrategyParallel), string(domain.StrategySequential)},
		},
		"priority": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "integer"},
		},
	},
	Required: []string{"sub_tasks", "strategy"},
})

func reasonerProperties() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"answer":     {Type: "string"},
		"confidence": {Type: "number"},
		"reasoning":  {Type: "string"},
		"citations":  stringList(),
	}
}

// draftSchema describes the Reasoner reply; draftCitedSchema also
// requires citations.
var (
	draftSchema = mustResolve(&jsonschema.Schema{
		Type:       "object",
		Properties: reasonerProperties(),
		Required:   []string{"answer", "confidence"},
	})
	draftCitedSchema = mustResolve(&jsonschema.Schema{
		Type:       "object",
		Properties: reasonerProperties(),
		Required:   []string{"answer", "confidence", "citations"},
	})
)

// reviewSchema describes the Reviewer model-check reply.
var reviewSchema = mustResolve(&jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"need_iterate": {Type: "boolean"},
		"confidence": {
			Type:    "number",
			Minimum: ptr(0.0),
			Maximum: ptr(1.0),
		},
		"issues":      stringList(),
		"suggestions": stringList(),
	},
	Required: []string{"need_iterate", "confidence"},
})
