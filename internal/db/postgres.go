package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/envutil"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := envutil.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := envutil.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := envutil.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := envutil.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := envutil.GetEnv("POSTGRES_NAME", "ontomap", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&domain.Project{},
		&domain.Source{},
		&domain.CanonicalRecord{},
		&domain.Primitive{},
		&domain.JobRun{},
		&domain.OntologyVersion{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	return s.applyConstraints()
}

// applyConstraints installs the invariants AutoMigrate cannot express.
// The partial unique index is the serialization point for propose/materialize
// submissions: insert either succeeds or trips a unique violation, so
// exclusivity is never a read-then-write race.
func (s *PostgresService) applyConstraints() error {
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_job_run_exclusive_kind
		ON job_run (project_id, kind)
		WHERE status IN ('pending', 'running')
		  AND kind IN ('propose_ontology', 'materialize')
	`).Error; err != nil {
		return fmt.Errorf("create job exclusivity index: %w", err)
	}
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ontology_version_single_active
		ON ontology_version (project_id)
		WHERE status = 'active'
	`).Error; err != nil {
		return fmt.Errorf("create single-active version index: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
