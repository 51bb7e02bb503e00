package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, project *domain.Project) (*domain.Project, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Project, error)
	List(ctx context.Context, tx *gorm.DB) ([]*domain.Project, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{
		db:  db,
		log: baseLog.With("repo", "ProjectRepo"),
	}
}

func (r *projectRepo) Create(ctx context.Context, tx *gorm.DB, project *domain.Project) (*domain.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Status == "" {
		project.Status = domain.ProjectStatusDraft
	}
	if err := transaction.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var project domain.Project
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("project", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) List(ctx context.Context, tx *gorm.DB) ([]*domain.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Project
	if err := transaction.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Update("status", status).Error
}
