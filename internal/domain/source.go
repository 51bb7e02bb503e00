package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Source is the provenance anchor for a batch of canonical records. Parsing
// happens upstream; the core only ever sees normalized records.
type Source struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Type        string    `gorm:"column:type;not null" json:"type"` // json|csv|text|pdf|docx
	Checksum    string    `gorm:"column:checksum" json:"checksum,omitempty"`
	RecordCount int       `gorm:"column:record_count;not null;default:0" json:"record_count"`
	CreatedAt   time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Source) TableName() string { return "source" }

// CanonicalRecord is read-only to the core once ingested.
type CanonicalRecord struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	SourceID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"source_id"`
	Fields     datatypes.JSON `gorm:"column:fields;type:jsonb;not null" json:"fields"`
	Provenance datatypes.JSON `gorm:"column:provenance;type:jsonb" json:"provenance"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (CanonicalRecord) TableName() string { return "canonical_record" }

const (
	PrimitiveKindEntity    = "entity"
	PrimitiveKindAttribute = "attribute"
	PrimitiveKindRelation  = "relation"
)

// Primitive is a semantic primitive extracted from canonical records by the
// extraction job. Primitives seed ontology proposals.
type Primitive struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	SourceRecordID  *uuid.UUID `gorm:"type:uuid;column:source_record_id;index" json:"source_record_id,omitempty"`
	Kind            string     `gorm:"column:kind;not null;index" json:"kind"` // entity|attribute|relation
	Label           string     `gorm:"column:label;not null" json:"label"`
	Evidence        string     `gorm:"column:evidence" json:"evidence,omitempty"`
	Confidence      float64    `gorm:"column:confidence" json:"confidence"`
	ExtractionJobID *uuid.UUID `gorm:"type:uuid;column:extraction_job_id;index" json:"extraction_job_id,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (Primitive) TableName() string { return "primitive" }
