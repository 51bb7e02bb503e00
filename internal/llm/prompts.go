package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ontomap/ontomap-backend/internal/ontology"
)

// The prompts are provider-neutral; every provider sends the same system and
// user text and must come back with the same JSON shapes.

const proposeSystemPrompt = `You are an expert ontology designer. Given a domain description, sample records, and extracted semantic primitives, design a knowledge-graph ontology.

Rules:
- Every relation's source_class and target_class must name one of your classes.
- Property types must be one of: string, integer, float, boolean, date, datetime, uri, json.
- Cardinality must be one of: one-to-one, one-to-many, many-to-one, many-to-many.
- Give each class and relation a confidence in [0,1] and a short rationale.

Respond with JSON only:
{
  "classes": [{"name": "...", "description": "...", "properties": [{"name": "...", "type": "string", "required": false}], "confidence": 0.9, "rationale": "..."}],
  "relation_types": [{"name": "...", "source_class": "...", "target_class": "...", "cardinality": "many-to-many", "confidence": 0.8}],
  "open_questions": ["..."],
  "reasoning": "..."
}`

const translateSystemPrompt = `You are an expert in translating natural language questions to Cypher queries.

Schema conventions:
- Instances are nodes labeled "Instance" with properties project_id, class_name, source_record_id plus the mapped record fields.
- Each instance has an INSTANCE_OF relationship to its OntologyClass node.
- Instance-to-instance relationships are RELATED edges with a "type" property naming the relation type.
- Generate READ-ONLY queries: never CREATE, MERGE, SET, DELETE, REMOVE or call writing procedures.
- Use the exact class and relation names from the schema.

Respond with JSON only:
{
  "cypher_query": "MATCH ... RETURN ...",
  "explanation": "...",
  "ontology_concepts_used": ["Class1", "RELATION_NAME"],
  "confidence": 0.9,
  "warnings": []
}`

const extractSystemPrompt = `You extract semantic primitives from sample records: the entities, attributes, and relations a domain expert would recognize.

Respond with JSON only:
{
  "primitives": [{"kind": "entity|attribute|relation", "label": "...", "evidence": "field or value that supports it", "confidence": 0.9}]
}`

func buildProposalPrompt(req ProposalRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Domain\n%s\n", req.DomainDescription)

	if len(req.Primitives) > 0 {
		b.WriteString("\n# Extracted primitives\n")
		for _, pr := range req.Primitives {
			fmt.Fprintf(&b, "- [%s] %s", pr.Kind, pr.Label)
			if pr.Evidence != "" {
				fmt.Fprintf(&b, " (evidence: %s)", pr.Evidence)
			}
			b.WriteString("\n")
		}
	}

	if len(req.Samples) > 0 {
		b.WriteString("\n# Sample records\n")
		for _, s := range req.Samples {
			raw, _ := json.Marshal(s.Fields)
			fmt.Fprintf(&b, "%s\n", raw)
		}
	}

	if req.Prior != nil {
		prior, _ := json.Marshal(req.Prior.Schema)
		fmt.Fprintf(&b, "\n# Previous ontology iteration\n%s\n", prior)
		fmt.Fprintf(&b, "\n# Human feedback to apply\n%s\n\nRevise the ontology according to the feedback. Keep what the feedback does not touch.\n", req.Prior.Feedback)
	} else {
		b.WriteString("\nDesign the initial ontology for this domain.\n")
	}
	return b.String()
}

func buildTranslationPrompt(question string, schema ontology.SchemaContext) string {
	var b strings.Builder
	b.WriteString("# Ontology classes\n")
	for _, c := range schema.Classes {
		fmt.Fprintf(&b, "- %s (properties: %s)\n", c.Name, strings.Join(c.Properties, ", "))
	}
	b.WriteString("\n# Ontology relationships\n")
	for _, r := range schema.RelationTypes {
		fmt.Fprintf(&b, "- (%s)-[%s]->(%s)\n", r.SourceClass, r.Name, r.TargetClass)
	}
	fmt.Fprintf(&b, "\n# Question\n%s\n\nGenerate a Cypher query to answer this question.\n", question)
	return b.String()
}

func buildExtractionPrompt(domainDescription string, samples []RecordSample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Domain\n%s\n\n# Sample records\n", domainDescription)
	for _, s := range samples {
		raw, _ := json.Marshal(s.Fields)
		fmt.Fprintf(&b, "%s\n", raw)
	}
	b.WriteString("\nExtract the semantic primitives present in these records.\n")
	return b.String()
}

// StripFences tolerates models that wrap JSON in markdown fences despite
// being told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
