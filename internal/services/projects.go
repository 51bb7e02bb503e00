package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

type ProjectService interface {
	Create(ctx context.Context, name, projectDomain, description string) (*domain.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
}

type projectService struct {
	db       *gorm.DB
	log      *logger.Logger
	projects repos.ProjectRepo
}

func NewProjectService(db *gorm.DB, baseLog *logger.Logger, projects repos.ProjectRepo) ProjectService {
	return &projectService{
		db:       db,
		log:      baseLog.With("service", "ProjectService"),
		projects: projects,
	}
}

func (s *projectService) Create(ctx context.Context, name, projectDomain, description string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("project name is required")
	}
	project := &domain.Project{
		Name:        name,
		Domain:      strings.TrimSpace(projectDomain),
		Description: strings.TrimSpace(description),
		Status:      domain.ProjectStatusDraft,
	}
	created, err := s.projects.Create(ctx, nil, project)
	if err != nil {
		return nil, err
	}
	s.log.Info("project created", "project_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *projectService) Get(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	return s.projects.GetByID(ctx, nil, id)
}

func (s *projectService) List(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx, nil)
}
