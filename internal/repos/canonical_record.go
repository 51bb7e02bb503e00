package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

type SourceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, source *domain.Source) (*domain.Source, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.Source, error)
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{db: db, log: baseLog.With("repo", "SourceRepo")}
}

func (r *sourceRepo) Create(ctx context.Context, tx *gorm.DB, source *domain.Source) (*domain.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(source).Error; err != nil {
		return nil, err
	}
	return source, nil
}

func (r *sourceRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Source
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type CanonicalRecordRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, records []*domain.CanonicalRecord) ([]*domain.CanonicalRecord, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, offset, limit int) ([]*domain.CanonicalRecord, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.CanonicalRecord, error)
	CountByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error)
	SampleByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, limit int) ([]*domain.CanonicalRecord, error)
}

type canonicalRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCanonicalRecordRepo(db *gorm.DB, baseLog *logger.Logger) CanonicalRecordRepo {
	return &canonicalRecordRepo{db: db, log: baseLog.With("repo", "CanonicalRecordRepo")}
}

func (r *canonicalRecordRepo) CreateBatch(ctx context.Context, tx *gorm.DB, records []*domain.CanonicalRecord) ([]*domain.CanonicalRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(records) == 0 {
		return []*domain.CanonicalRecord{}, nil
	}
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).CreateInBatches(&records, 500).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *canonicalRecordRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, offset, limit int) ([]*domain.CanonicalRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.CanonicalRecord
	q := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *canonicalRecordRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.CanonicalRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.CanonicalRecord
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *canonicalRecordRepo) CountByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.CanonicalRecord{}).
		Where("project_id = ?", projectID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SampleByProject returns a bounded, stable sample for LLM prompts. Stable
// ordering keeps repeated proposal runs comparable.
func (r *canonicalRecordRepo) SampleByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, limit int) ([]*domain.CanonicalRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.ListByProject(ctx, tx, projectID, 0, limit)
}
