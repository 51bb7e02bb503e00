package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

// SourceService ingests pre-normalized records. Parsing and normalization
// happen upstream; a record arrives as a flat field map plus provenance.
type SourceService interface {
	IngestRecords(ctx context.Context, in IngestInput) (*domain.Source, error)
	ListSources(ctx context.Context, projectID uuid.UUID) ([]*domain.Source, error)
	ListRecords(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]*domain.CanonicalRecord, int64, error)
}

type RecordInput struct {
	Fields     map[string]any `json:"fields"`
	Provenance map[string]any `json:"provenance,omitempty"`
}

type IngestInput struct {
	ProjectID  uuid.UUID
	SourceName string
	SourceType string
	Records    []RecordInput
}

var sourceTypes = map[string]struct{}{
	"json": {}, "csv": {}, "text": {}, "pdf": {}, "docx": {},
}

type sourceService struct {
	db       *gorm.DB
	log      *logger.Logger
	sources  repos.SourceRepo
	records  repos.CanonicalRecordRepo
	projects repos.ProjectRepo
}

func NewSourceService(db *gorm.DB, baseLog *logger.Logger, sources repos.SourceRepo, records repos.CanonicalRecordRepo, projects repos.ProjectRepo) SourceService {
	return &sourceService{
		db:       db,
		log:      baseLog.With("service", "SourceService"),
		sources:  sources,
		records:  records,
		projects: projects,
	}
}

// IngestRecords creates the source row and its canonical records in one
// transaction, so a partially ingested batch never becomes visible.
func (s *sourceService) IngestRecords(ctx context.Context, in IngestInput) (*domain.Source, error) {
	if _, err := s.projects.GetByID(ctx, nil, in.ProjectID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.SourceName)
	if name == "" {
		return nil, domain.NewValidationError("source name is required")
	}
	srcType := strings.TrimSpace(strings.ToLower(in.SourceType))
	if _, ok := sourceTypes[srcType]; !ok {
		return nil, domain.NewValidationError("unknown source type %q", in.SourceType)
	}
	if len(in.Records) == 0 {
		return nil, domain.NewValidationError("at least one record is required")
	}
	for i, r := range in.Records {
		if len(r.Fields) == 0 {
			return nil, domain.NewValidationError("record %d has no fields", i)
		}
	}

	batchJSON, err := json.Marshal(in.Records)
	if err != nil {
		return nil, domain.NewValidationError("records not serializable: %v", err)
	}
	sum := sha256.Sum256(batchJSON)

	source := &domain.Source{
		ProjectID:   in.ProjectID,
		Name:        name,
		Type:        srcType,
		Checksum:    hex.EncodeToString(sum[:]),
		RecordCount: len(in.Records),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, cErr := s.sources.Create(ctx, tx, source)
		if cErr != nil {
			return cErr
		}
		source = created

		records := make([]*domain.CanonicalRecord, 0, len(in.Records))
		for _, r := range in.Records {
			fields, mErr := json.Marshal(r.Fields)
			if mErr != nil {
				return mErr
			}
			var prov datatypes.JSON
			if r.Provenance != nil {
				p, mErr := json.Marshal(r.Provenance)
				if mErr != nil {
					return mErr
				}
				prov = datatypes.JSON(p)
			}
			records = append(records, &domain.CanonicalRecord{
				ProjectID:  in.ProjectID,
				SourceID:   source.ID,
				Fields:     datatypes.JSON(fields),
				Provenance: prov,
			})
		}
		_, cErr = s.records.CreateBatch(ctx, tx, records)
		return cErr
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("records ingested",
		"project_id", in.ProjectID,
		"source_id", source.ID,
		"source_name", name,
		"record_count", len(in.Records))
	return source, nil
}

func (s *sourceService) ListSources(ctx context.Context, projectID uuid.UUID) ([]*domain.Source, error) {
	if _, err := s.projects.GetByID(ctx, nil, projectID); err != nil {
		return nil, err
	}
	return s.sources.ListByProject(ctx, nil, projectID)
}

func (s *sourceService) ListRecords(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]*domain.CanonicalRecord, int64, error) {
	if _, err := s.projects.GetByID(ctx, nil, projectID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.records.ListByProject(ctx, nil, projectID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.records.CountByProject(ctx, nil, projectID)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
