// Package llm defines the capability boundary to the language model. The
// core treats these interfaces as opaque and non-deterministic: output is
// validated by the caller and retried inside job workers, never trusted.
package llm

import (
	"context"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/ontology"
)

// RecordSample is a bounded projection of a canonical record for prompting.
type RecordSample struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// PrimitiveSample is extracted evidence fed back into proposal prompts.
type PrimitiveSample struct {
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Evidence string `json:"evidence,omitempty"`
}

// PriorIteration carries the previous version and the human feedback that
// should shape the next proposal.
type PriorIteration struct {
	Schema   domain.OntologySchema `json:"schema"`
	Feedback string                `json:"feedback"`
}

type ProposalRequest struct {
	DomainDescription string
	Samples           []RecordSample
	Primitives        []PrimitiveSample
	Prior             *PriorIteration
}

// Proposal is the raw capability output. Confidence and rationale are stored
// verbatim for human review; the core never thresholds them.
type Proposal struct {
	Classes       []domain.OntologyClass        `json:"classes"`
	RelationTypes []domain.OntologyRelationType `json:"relation_types"`
	OpenQuestions []string                      `json:"open_questions,omitempty"`
	Reasoning     string                        `json:"reasoning,omitempty"`
}

type ProposalProvider interface {
	ProposeOntology(ctx context.Context, req ProposalRequest) (Proposal, error)
}

// Translation is an untrusted query plan. The query gate filters it before
// anything reaches the graph.
type Translation struct {
	Cypher       string   `json:"cypher_query"`
	Explanation  string   `json:"explanation"`
	ConceptsUsed []string `json:"ontology_concepts_used,omitempty"`
	Confidence   float64  `json:"confidence"`
	Warnings     []string `json:"warnings,omitempty"`
}

type QueryTranslator interface {
	Translate(ctx context.Context, question string, schema ontology.SchemaContext) (Translation, error)
}

type ExtractedPrimitive struct {
	Kind       string  `json:"kind"`
	Label      string  `json:"label"`
	Evidence   string  `json:"evidence,omitempty"`
	Confidence float64 `json:"confidence"`
}

type PrimitiveExtractor interface {
	ExtractPrimitives(ctx context.Context, domainDescription string, samples []RecordSample) ([]ExtractedPrimitive, error)
}
