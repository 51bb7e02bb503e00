package ontology

import (
	"testing"

	"github.com/ontomap/ontomap-backend/internal/domain"
)

func validSchema() domain.OntologySchema {
	return domain.OntologySchema{
		Classes: []domain.OntologyClass{
			{
				Name: "Person",
				Properties: []domain.PropertyDef{
					{Name: "name", Type: domain.DataTypeString, Required: true},
					{Name: "age", Type: domain.DataTypeInteger},
				},
			},
			{
				Name: "Company",
				Properties: []domain.PropertyDef{
					{Name: "name", Type: domain.DataTypeString, Required: true},
				},
			},
		},
		RelationTypes: []domain.OntologyRelationType{
			{Name: "WORKS_FOR", SourceClass: "Person", TargetClass: "Company", Cardinality: domain.CardinalityManyToOne},
		},
	}
}

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	if err := Validate(validSchema()); err != nil {
		t.Fatalf("expected valid schema, got %v", err)
	}
}

func TestValidateRejectsEmptySchema(t *testing.T) {
	err := Validate(domain.OntologySchema{})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateRejectsDuplicateClassNames(t *testing.T) {
	s := validSchema()
	s.Classes = append(s.Classes, domain.OntologyClass{Name: "Person"})
	if err := Validate(s); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateRejectsEmptyClassName(t *testing.T) {
	s := validSchema()
	s.Classes[0].Name = "  "
	if err := Validate(s); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateRejectsDuplicateProperty(t *testing.T) {
	s := validSchema()
	s.Classes[0].Properties = append(s.Classes[0].Properties, domain.PropertyDef{Name: "name", Type: domain.DataTypeString})
	if err := Validate(s); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateRejectsUnknownPropertyType(t *testing.T) {
	s := validSchema()
	s.Classes[0].Properties[0].Type = "decimal"
	if err := Validate(s); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateRejectsDanglingRelationEndpoint(t *testing.T) {
	s := validSchema()
	s.RelationTypes[0].TargetClass = "Nonexistent"
	if err := Validate(s); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateRejectsDuplicateRelationNames(t *testing.T) {
	s := validSchema()
	s.RelationTypes = append(s.RelationTypes, domain.OntologyRelationType{
		Name: "WORKS_FOR", SourceClass: "Company", TargetClass: "Person",
	})
	if err := Validate(s); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateRejectsUnknownCardinality(t *testing.T) {
	s := validSchema()
	s.RelationTypes[0].Cardinality = "many"
	if err := Validate(s); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateAllowsMissingCardinality(t *testing.T) {
	s := validSchema()
	s.RelationTypes[0].Cardinality = ""
	if err := Validate(s); err != nil {
		t.Fatalf("empty cardinality should be allowed, got %v", err)
	}
}

func TestContextOfStripsAnnotations(t *testing.T) {
	s := validSchema()
	s.Classes[0].Confidence = 0.95
	s.Classes[0].Rationale = "seen in most records"

	ctx := ContextOf(s)
	if len(ctx.Classes) != 2 {
		t.Fatalf("expected 2 classes in context, got %d", len(ctx.Classes))
	}
	if got := ctx.Classes[0].Properties; len(got) != 2 || got[0] != "name" {
		t.Fatalf("unexpected property names: %v", got)
	}
	if len(ctx.RelationTypes) != 1 || ctx.RelationTypes[0].SourceClass != "Person" {
		t.Fatalf("unexpected relation context: %+v", ctx.RelationTypes)
	}
}
