package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/observability"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

// JobService owns the submission surface of the job ledger: every async
// operation enters as a pending row here and is picked up by the workers.
type JobService interface {
	Submit(ctx context.Context, projectID uuid.UUID, kind string, payload map[string]any) (*domain.JobRun, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.JobRun, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.JobRun, error)
}

type jobService struct {
	db       *gorm.DB
	log      *logger.Logger
	jobs     repos.JobRunRepo
	projects repos.ProjectRepo
	notify   JobNotifier
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobRunRepo, projects repos.ProjectRepo, notify JobNotifier) JobService {
	return &jobService{
		db:       db,
		log:      baseLog.With("service", "JobService"),
		jobs:     jobs,
		projects: projects,
		notify:   notify,
	}
}

// Submit validates the kind and project, then inserts a pending job. For
// exclusive kinds the insert itself is the concurrency check: a duplicate
// pending/running job surfaces as ConflictError from the repo.
func (s *jobService) Submit(ctx context.Context, projectID uuid.UUID, kind string, payload map[string]any) (*domain.JobRun, error) {
	if !domain.ValidJobKind(kind) {
		return nil, domain.NewValidationError("unknown job kind %q", kind)
	}
	if _, err := s.projects.GetByID(ctx, nil, projectID); err != nil {
		return nil, err
	}

	var raw datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.NewValidationError("payload not serializable: %v", err)
		}
		raw = datatypes.JSON(b)
	}

	job := &domain.JobRun{
		ProjectID: projectID,
		Kind:      kind,
		Status:    domain.JobStatusPending,
		Payload:   raw,
	}
	created, err := s.jobs.Create(ctx, nil, job)
	if err != nil {
		return nil, err
	}

	observability.JobSubmitted(kind)
	if s.notify != nil {
		s.notify.JobCreated(ctx, created)
	}
	s.log.Info("job submitted", "job_id", created.ID, "kind", kind, "project_id", projectID)
	return created, nil
}

func (s *jobService) Get(ctx context.Context, id uuid.UUID) (*domain.JobRun, error) {
	return s.jobs.GetByID(ctx, nil, id)
}

func (s *jobService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.JobRun, error) {
	if _, err := s.projects.GetByID(ctx, nil, projectID); err != nil {
		return nil, err
	}
	return s.jobs.ListByProject(ctx, nil, projectID)
}
