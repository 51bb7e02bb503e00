// Package ontology holds the pure schema logic: structural validation of
// proposed versions and name-keyed diffing between versions. Nothing here
// touches storage.
package ontology

import (
	"strings"

	"github.com/ontomap/ontomap-backend/internal/domain"
)

// Validate checks a candidate schema for structural soundness: non-empty
// unique names, known property types and cardinalities, and referential
// integrity of every relation endpoint. A schema that fails here must never
// be persisted.
func Validate(schema domain.OntologySchema) error {
	if len(schema.Classes) == 0 {
		return domain.NewValidationError("ontology must define at least one class")
	}

	classNames := make(map[string]struct{}, len(schema.Classes))
	for _, c := range schema.Classes {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return domain.NewValidationError("class with empty name")
		}
		if _, dup := classNames[name]; dup {
			return domain.NewValidationError("duplicate class name %q", name)
		}
		classNames[name] = struct{}{}

		propNames := make(map[string]struct{}, len(c.Properties))
		for _, p := range c.Properties {
			pname := strings.TrimSpace(p.Name)
			if pname == "" {
				return domain.NewValidationError("class %q has a property with empty name", name)
			}
			if _, dup := propNames[pname]; dup {
				return domain.NewValidationError("class %q has duplicate property %q", name, pname)
			}
			propNames[pname] = struct{}{}
			if !validDataType(p.Type) {
				return domain.NewValidationError("class %q property %q has unknown type %q", name, pname, p.Type)
			}
		}
	}

	relNames := make(map[string]struct{}, len(schema.RelationTypes))
	for _, r := range schema.RelationTypes {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return domain.NewValidationError("relation type with empty name")
		}
		if _, dup := relNames[name]; dup {
			return domain.NewValidationError("duplicate relation type name %q", name)
		}
		relNames[name] = struct{}{}

		if _, ok := classNames[r.SourceClass]; !ok {
			return domain.NewValidationError("relation %q references unknown source class %q", name, r.SourceClass)
		}
		if _, ok := classNames[r.TargetClass]; !ok {
			return domain.NewValidationError("relation %q references unknown target class %q", name, r.TargetClass)
		}
		if r.Cardinality != "" && !validCardinality(r.Cardinality) {
			return domain.NewValidationError("relation %q has unknown cardinality %q", name, r.Cardinality)
		}
	}

	return nil
}

func validDataType(t string) bool {
	switch t {
	case domain.DataTypeString, domain.DataTypeInteger, domain.DataTypeFloat,
		domain.DataTypeBoolean, domain.DataTypeDate, domain.DataTypeDatetime,
		domain.DataTypeURI, domain.DataTypeJSON:
		return true
	default:
		return false
	}
}

func validCardinality(c string) bool {
	switch c {
	case domain.CardinalityOneToOne, domain.CardinalityOneToMany,
		domain.CardinalityManyToOne, domain.CardinalityManyToMany:
		return true
	default:
		return false
	}
}

// SchemaContext is the bounded view handed to the query translation
// capability: names only, no confidences, no rationale.
type SchemaContext struct {
	Classes       []ClassContext    `json:"classes"`
	RelationTypes []RelationContext `json:"relation_types"`
}

type ClassContext struct {
	Name       string   `json:"name"`
	Properties []string `json:"properties"`
}

type RelationContext struct {
	Name        string `json:"name"`
	SourceClass string `json:"source_class"`
	TargetClass string `json:"target_class"`
}

func ContextOf(schema domain.OntologySchema) SchemaContext {
	out := SchemaContext{
		Classes:       make([]ClassContext, 0, len(schema.Classes)),
		RelationTypes: make([]RelationContext, 0, len(schema.RelationTypes)),
	}
	for _, c := range schema.Classes {
		props := make([]string, 0, len(c.Properties))
		for _, p := range c.Properties {
			props = append(props, p.Name)
		}
		out.Classes = append(out.Classes, ClassContext{Name: c.Name, Properties: props})
	}
	for _, r := range schema.RelationTypes {
		out.RelationTypes = append(out.RelationTypes, RelationContext{
			Name:        r.Name,
			SourceClass: r.SourceClass,
			TargetClass: r.TargetClass,
		})
	}
	return out
}
