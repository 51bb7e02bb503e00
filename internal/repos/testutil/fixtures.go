package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
)

func CreateProject(tb testing.TB, db *gorm.DB) *domain.Project {
	tb.Helper()
	p := &domain.Project{
		ID:     uuid.New(),
		Name:   fmt.Sprintf("test-project-%d", time.Now().UnixNano()),
		Domain: "integration testing",
		Status: domain.ProjectStatusDraft,
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("create project fixture: %v", err)
	}
	return p
}

func CreateProposedVersion(tb testing.TB, db *gorm.DB, projectID uuid.UUID, seq int) *domain.OntologyVersion {
	tb.Helper()
	v := &domain.OntologyVersion{
		ID:             uuid.New(),
		ProjectID:      projectID,
		SequenceNumber: seq,
		Classes:        datatypes.JSON(`[{"name":"Person","description":"","properties":[{"name":"name","type":"string","required":true}],"confidence":0.9}]`),
		RelationTypes:  datatypes.JSON(`[]`),
		Status:         domain.VersionStatusProposed,
	}
	if err := db.Create(v).Error; err != nil {
		tb.Fatalf("create version fixture: %v", err)
	}
	return v
}
