package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

type PrimitiveRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, primitives []*domain.Primitive) ([]*domain.Primitive, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.Primitive, error)
	DeleteByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type primitiveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrimitiveRepo(db *gorm.DB, baseLog *logger.Logger) PrimitiveRepo {
	return &primitiveRepo{db: db, log: baseLog.With("repo", "PrimitiveRepo")}
}

func (r *primitiveRepo) CreateBatch(ctx context.Context, tx *gorm.DB, primitives []*domain.Primitive) ([]*domain.Primitive, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(primitives) == 0 {
		return []*domain.Primitive{}, nil
	}
	for _, p := range primitives {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).CreateInBatches(&primitives, 500).Error; err != nil {
		return nil, err
	}
	return primitives, nil
}

func (r *primitiveRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.Primitive, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Primitive
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByProject clears stale primitives before a fresh extraction run.
func (r *primitiveRepo) DeleteByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&domain.Primitive{}).Error
}
