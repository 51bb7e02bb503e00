package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

type OntologyVersionRepo interface {
	// CreateProposed persists a validated snapshot with the next sequence
	// number for the project. Sequence assignment happens under the project
	// row lock so numbers are strictly increasing and never reused.
	CreateProposed(ctx context.Context, tx *gorm.DB, version *domain.OntologyVersion) (*domain.OntologyVersion, error)
	// Accept atomically promotes the target to active and demotes the
	// previous active version. First committer wins; a concurrent accept on
	// the same project gets ConflictError.
	Accept(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) (*domain.OntologyVersion, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.OntologyVersion, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.OntologyVersion, error)
	GetActive(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*domain.OntologyVersion, error)
}

type ontologyVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOntologyVersionRepo(db *gorm.DB, baseLog *logger.Logger) OntologyVersionRepo {
	return &ontologyVersionRepo{
		db:  db,
		log: baseLog.With("repo", "OntologyVersionRepo"),
	}
}

func (r *ontologyVersionRepo) CreateProposed(ctx context.Context, tx *gorm.DB, version *domain.OntologyVersion) (*domain.OntologyVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	version.Status = domain.VersionStatusProposed

	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var project domain.Project
		pErr := txx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", version.ProjectID).
			First(&project).Error
		if errors.Is(pErr, gorm.ErrRecordNotFound) {
			return domain.NewNotFoundError("project", version.ProjectID.String())
		}
		if pErr != nil {
			return pErr
		}

		if version.ParentVersionID != nil {
			var parent domain.OntologyVersion
			paErr := txx.Where("id = ? AND project_id = ?", *version.ParentVersionID, version.ProjectID).
				First(&parent).Error
			if errors.Is(paErr, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("ontology version", version.ParentVersionID.String())
			}
			if paErr != nil {
				return paErr
			}
		}

		var maxSeq int
		if err := txx.Model(&domain.OntologyVersion{}).
			Where("project_id = ?", version.ProjectID).
			Select("COALESCE(MAX(sequence_number), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		version.SequenceNumber = maxSeq + 1

		return txx.Create(version).Error
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (r *ontologyVersionRepo) Accept(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) (*domain.OntologyVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var accepted *domain.OntologyVersion
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var version domain.OntologyVersion
		vErr := txx.Where("id = ?", versionID).First(&version).Error
		if errors.Is(vErr, gorm.ErrRecordNotFound) {
			return domain.NewNotFoundError("ontology version", versionID.String())
		}
		if vErr != nil {
			return vErr
		}

		// NOWAIT turns a lock held by a concurrent accept into an immediate
		// ConflictError instead of a silent queue behind it.
		var project domain.Project
		pErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
			Where("id = ?", version.ProjectID).
			First(&project).Error
		if errors.Is(pErr, gorm.ErrRecordNotFound) {
			return domain.NewNotFoundError("project", version.ProjectID.String())
		}
		if pErr != nil {
			if isLockNotAvailable(pErr) {
				return domain.NewConflictError("another accept is in flight for project %s", version.ProjectID)
			}
			return pErr
		}

		if version.Status != domain.VersionStatusProposed {
			return domain.NewConflictError("version %s is %s, only proposed versions can be accepted", version.ID, version.Status)
		}

		if err := txx.Model(&domain.OntologyVersion{}).
			Where("project_id = ? AND status = ?", version.ProjectID, domain.VersionStatusActive).
			Update("status", domain.VersionStatusSuperseded).Error; err != nil {
			return err
		}

		res := txx.Model(&domain.OntologyVersion{}).
			Where("id = ? AND status = ?", version.ID, domain.VersionStatusProposed).
			Update("status", domain.VersionStatusActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NewConflictError("version %s was concurrently transitioned", version.ID)
		}

		version.Status = domain.VersionStatusActive
		accepted = &version
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (r *ontologyVersionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.OntologyVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var version domain.OntologyVersion
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("ontology version", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *ontologyVersionRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.OntologyVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.OntologyVersion
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("sequence_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ontologyVersionRepo) GetActive(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*domain.OntologyVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var version domain.OntologyVersion
	err := transaction.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, domain.VersionStatusActive).
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}
