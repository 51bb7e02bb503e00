package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProjectStatusDraft    = "draft"
	ProjectStatusBuilding = "building"
	ProjectStatusComplete = "complete"
)

type Project struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null;index" json:"name"`
	Domain      string         `gorm:"column:domain;not null" json:"domain"`
	Description string         `gorm:"column:description" json:"description"`
	Status      string         `gorm:"column:status;not null;index" json:"status"` // draft|building|complete
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }
