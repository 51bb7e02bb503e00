package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

type JobRunRepo interface {
	// Create inserts a pending job. For exclusive kinds the partial unique
	// index makes this an atomic check-and-insert; a duplicate surfaces as
	// ConflictError.
	Create(ctx context.Context, tx *gorm.DB, job *domain.JobRun) (*domain.JobRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.JobRun, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.JobRun, error)
	// ClaimNextRunnable picks one pending job and flips it to running inside
	// a single transaction (FOR UPDATE SKIP LOCKED), so each job is claimed
	// exactly once across workers.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB) (*domain.JobRun, error)
	// UpdateIfRunning applies updates only while the row is still running.
	// Returns false when the guard rejects the write (row already terminal).
	UpdateIfRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error)
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	// FailTimedOut is the watchdog transition: running jobs of the given kind
	// whose heartbeat predates the cutoff are failed with a timeout code.
	FailTimedOut(ctx context.Context, tx *gorm.DB, kind string, cutoff time.Time, errMsg string) (int64, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) Create(ctx context.Context, tx *gorm.DB, job *domain.JobRun) (*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.NewConflictError("a %s job is already pending or running for project %s", job.Kind, job.ProjectID)
		}
		return nil, err
	}
	return job, nil
}

func (r *jobRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job domain.JobRun
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("job", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRunRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.JobRun
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB) (*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	var claimed *domain.JobRun
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job domain.JobRun
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", domain.JobStatusPending).
			Order("created_at ASC").
			First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&domain.JobRun{}).
			Where("id = ? AND status = ?", job.ID, domain.JobStatusPending).
			Updates(map[string]interface{}{
				"status":       domain.JobStatusRunning,
				"started_at":   now,
				"heartbeat_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = domain.JobStatusRunning
		job.StartedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateIfRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Model(&domain.JobRun{}).
		Where("id = ? AND status = ?", id, domain.JobStatusRunning).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&domain.JobRun{}).
		Where("id = ? AND status = ?", id, domain.JobStatusRunning).
		Update("heartbeat_at", time.Now()).Error
}

func (r *jobRunRepo) FailTimedOut(ctx context.Context, tx *gorm.DB, kind string, cutoff time.Time, errMsg string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&domain.JobRun{}).
		Where("kind = ? AND status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?",
			kind, domain.JobStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":       domain.JobStatusFailed,
			"error":        errMsg,
			"error_code":   domain.ErrCodeTimeout,
			"completed_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
