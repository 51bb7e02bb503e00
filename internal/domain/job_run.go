package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobKindExtract         = "extract"
	JobKindProposeOntology = "propose_ontology"
	JobKindMaterialize     = "materialize"
	JobKindQuery           = "query"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// JobRun is the durable ledger row for one asynchronous unit of work.
// State machine: pending -> running -> {completed, failed}. Terminal rows are
// never mutated again; every transition is a compare-and-set on status.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Kind        string         `gorm:"column:kind;not null;index" json:"kind"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Progress    float64        `gorm:"column:progress;not null;default:0" json:"progress"` // [0,1]
	Message     string         `gorm:"column:message" json:"message,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	ErrorCode   string         `gorm:"column:error_code;index" json:"error_code,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	StartedAt   *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
}

func (JobRun) TableName() string { return "job_run" }

func (j *JobRun) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// ExclusiveKind reports whether at most one pending/running job of this kind
// may exist per project.
func ExclusiveKind(kind string) bool {
	return kind == JobKindProposeOntology || kind == JobKindMaterialize
}

func ValidJobKind(kind string) bool {
	switch kind {
	case JobKindExtract, JobKindProposeOntology, JobKindMaterialize, JobKindQuery:
		return true
	default:
		return false
	}
}
