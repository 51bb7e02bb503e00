package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/graph"
	"github.com/ontomap/ontomap-backend/internal/observability"
	"github.com/ontomap/ontomap-backend/internal/ontology"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

// OntologyService is the versioned ontology store: proposals enter through
// Propose (always validated first), promotion happens through Accept, and
// the lineage is append-only.
type OntologyService interface {
	Propose(ctx context.Context, in ProposeInput) (*domain.OntologyVersion, error)
	Accept(ctx context.Context, versionID uuid.UUID) (*domain.OntologyVersion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OntologyVersion, error)
	ListVersions(ctx context.Context, projectID uuid.UUID) ([]*domain.OntologyVersion, error)
	GetActive(ctx context.Context, projectID uuid.UUID) (*domain.OntologyVersion, error)
	Diff(ctx context.Context, fromID, toID uuid.UUID) (ontology.Diff, error)
}

type ProposeInput struct {
	ProjectID       uuid.UUID
	Schema          domain.OntologySchema
	ParentVersionID *uuid.UUID
	FeedbackApplied string
}

type ontologyService struct {
	db       *gorm.DB
	log      *logger.Logger
	versions repos.OntologyVersionRepo
	projects repos.ProjectRepo
	graph    graph.Store
}

func NewOntologyService(db *gorm.DB, baseLog *logger.Logger, versions repos.OntologyVersionRepo, projects repos.ProjectRepo, graphStore graph.Store) OntologyService {
	return &ontologyService{
		db:       db,
		log:      baseLog.With("service", "OntologyService"),
		versions: versions,
		projects: projects,
		graph:    graphStore,
	}
}

// Propose validates the schema and appends a proposed version. The sequence
// number is assigned inside the repo under the project row lock, so
// concurrent proposals never collide or leave gaps.
func (s *ontologyService) Propose(ctx context.Context, in ProposeInput) (*domain.OntologyVersion, error) {
	if _, err := s.projects.GetByID(ctx, nil, in.ProjectID); err != nil {
		return nil, err
	}
	if err := ontology.Validate(in.Schema); err != nil {
		return nil, err
	}

	classes, err := json.Marshal(in.Schema.Classes)
	if err != nil {
		return nil, err
	}
	relations, err := json.Marshal(in.Schema.RelationTypes)
	if err != nil {
		return nil, err
	}

	version := &domain.OntologyVersion{
		ProjectID:       in.ProjectID,
		Classes:         datatypes.JSON(classes),
		RelationTypes:   datatypes.JSON(relations),
		ParentVersionID: in.ParentVersionID,
		FeedbackApplied: in.FeedbackApplied,
		Status:          domain.VersionStatusProposed,
	}
	created, err := s.versions.CreateProposed(ctx, nil, version)
	if err != nil {
		return nil, err
	}
	s.log.Info("ontology version proposed",
		"project_id", in.ProjectID,
		"version_id", created.ID,
		"sequence_number", created.SequenceNumber,
		"classes", len(in.Schema.Classes),
		"relation_types", len(in.Schema.RelationTypes))
	return created, nil
}

// Accept promotes a proposed version to active. The repo runs the promotion
// under a NOWAIT project lock so concurrent accepts resolve first-committer-
// wins. The graph schema mirror is synced best-effort afterwards; a sync
// failure never rolls back the promotion (the materialize pipeline re-syncs).
func (s *ontologyService) Accept(ctx context.Context, versionID uuid.UUID) (*domain.OntologyVersion, error) {
	accepted, err := s.versions.Accept(ctx, nil, versionID)
	if err != nil {
		return nil, err
	}
	observability.OntologyVersionAccepted()
	s.log.Info("ontology version accepted",
		"project_id", accepted.ProjectID,
		"version_id", accepted.ID,
		"sequence_number", accepted.SequenceNumber)

	if s.graph != nil {
		schema, sErr := accepted.Schema()
		if sErr == nil {
			sErr = s.graph.SyncOntology(ctx, accepted, schema)
		}
		if sErr != nil {
			s.log.Warn("graph ontology sync failed (will retry on materialize)",
				"version_id", accepted.ID, "error", sErr)
		}
	}
	return accepted, nil
}

func (s *ontologyService) GetByID(ctx context.Context, id uuid.UUID) (*domain.OntologyVersion, error) {
	return s.versions.GetByID(ctx, nil, id)
}

func (s *ontologyService) ListVersions(ctx context.Context, projectID uuid.UUID) ([]*domain.OntologyVersion, error) {
	if _, err := s.projects.GetByID(ctx, nil, projectID); err != nil {
		return nil, err
	}
	return s.versions.ListByProject(ctx, nil, projectID)
}

// GetActive returns NotFoundError when the project has no active version.
func (s *ontologyService) GetActive(ctx context.Context, projectID uuid.UUID) (*domain.OntologyVersion, error) {
	if _, err := s.projects.GetByID(ctx, nil, projectID); err != nil {
		return nil, err
	}
	v, err := s.versions.GetActive(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.NewNotFoundError("active ontology version for project", projectID.String())
	}
	return v, nil
}

// Diff compares two versions of the same project.
func (s *ontologyService) Diff(ctx context.Context, fromID, toID uuid.UUID) (ontology.Diff, error) {
	from, err := s.versions.GetByID(ctx, nil, fromID)
	if err != nil {
		return ontology.Diff{}, err
	}
	to, err := s.versions.GetByID(ctx, nil, toID)
	if err != nil {
		return ontology.Diff{}, err
	}
	if from.ProjectID != to.ProjectID {
		return ontology.Diff{}, domain.NewValidationError("versions %s and %s belong to different projects", fromID, toID)
	}
	fromSchema, err := from.Schema()
	if err != nil {
		return ontology.Diff{}, err
	}
	toSchema, err := to.Schema()
	if err != nil {
		return ontology.Diff{}, err
	}
	d := ontology.ComputeDiff(fromSchema, toSchema)
	d.FromVersionID = from.ID.String()
	d.ToVersionID = to.ID.String()
	return d, nil
}
