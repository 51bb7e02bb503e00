package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	VersionStatusProposed   = "proposed"
	VersionStatusActive     = "active"
	VersionStatusSuperseded = "superseded"
)

// Property data types accepted in class definitions.
const (
	DataTypeString   = "string"
	DataTypeInteger  = "integer"
	DataTypeFloat    = "float"
	DataTypeBoolean  = "boolean"
	DataTypeDate     = "date"
	DataTypeDatetime = "datetime"
	DataTypeURI      = "uri"
	DataTypeJSON     = "json"
)

const (
	CardinalityOneToOne   = "one-to-one"
	CardinalityOneToMany  = "one-to-many"
	CardinalityManyToOne  = "many-to-one"
	CardinalityManyToMany = "many-to-many"
)

type PropertyDef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type OntologyClass struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Properties  []PropertyDef `json:"properties"`
	Confidence  float64       `json:"confidence"`
	Rationale   string        `json:"rationale,omitempty"`
}

type OntologyRelationType struct {
	Name        string  `json:"name"`
	SourceClass string  `json:"source_class"`
	TargetClass string  `json:"target_class"`
	Cardinality string  `json:"cardinality"`
	Confidence  float64 `json:"confidence"`
}

// OntologySchema is the self-contained schema snapshot carried by every
// OntologyVersion row.
type OntologySchema struct {
	Classes       []OntologyClass        `json:"classes"`
	RelationTypes []OntologyRelationType `json:"relation_types"`
}

// OntologyVersion is one append-only entry in a project's ontology lineage.
// Exactly one version per project may be active at a time; sequence numbers
// are strictly increasing and never reused.
type OntologyVersion struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_version_project_seq,unique" json:"project_id"`
	SequenceNumber  int            `gorm:"column:sequence_number;not null;index:idx_version_project_seq,unique" json:"sequence_number"`
	Classes         datatypes.JSON `gorm:"column:classes;type:jsonb;not null" json:"classes"`
	RelationTypes   datatypes.JSON `gorm:"column:relation_types;type:jsonb;not null" json:"relation_types"`
	ParentVersionID *uuid.UUID     `gorm:"type:uuid;column:parent_version_id" json:"parent_version_id,omitempty"`
	FeedbackApplied string         `gorm:"column:feedback_applied" json:"feedback_applied,omitempty"`
	Status          string         `gorm:"column:status;not null;index" json:"status"` // proposed|active|superseded
	CreatedAt       time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (OntologyVersion) TableName() string { return "ontology_version" }

func (v *OntologyVersion) Schema() (OntologySchema, error) {
	var s OntologySchema
	if len(v.Classes) > 0 {
		if err := json.Unmarshal(v.Classes, &s.Classes); err != nil {
			return OntologySchema{}, err
		}
	}
	if len(v.RelationTypes) > 0 {
		if err := json.Unmarshal(v.RelationTypes, &s.RelationTypes); err != nil {
			return OntologySchema{}, err
		}
	}
	return s, nil
}

func (s OntologySchema) ClassNames() []string {
	out := make([]string, 0, len(s.Classes))
	for _, c := range s.Classes {
		out = append(out, c.Name)
	}
	return out
}

func (s OntologySchema) ClassByName(name string) (OntologyClass, bool) {
	for _, c := range s.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return OntologyClass{}, false
}

func (s OntologySchema) RelationByName(name string) (OntologyRelationType, bool) {
	for _, r := range s.RelationTypes {
		if r.Name == name {
			return r, true
		}
	}
	return OntologyRelationType{}, false
}
