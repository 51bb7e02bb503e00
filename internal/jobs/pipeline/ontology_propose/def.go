// Package ontology_propose runs the proposal job: a bounded sample of
// canonical records and extracted primitives goes to the LLM, the returned
// schema is validated structurally, and only a valid proposal is appended to
// the version lineage. Invalid output is retried within a small budget and
// never persisted.
package ontology_propose

import (
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/llm"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
	"github.com/ontomap/ontomap-backend/internal/services"
)

type Pipeline struct {
	db         *gorm.DB
	log        *logger.Logger
	provider   llm.ProposalProvider
	projects   repos.ProjectRepo
	records    repos.CanonicalRecordRepo
	primitives repos.PrimitiveRepo
	versions   repos.OntologyVersionRepo
	ontology   services.OntologyService
	sampleSize int
	retries    int
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	provider llm.ProposalProvider,
	projects repos.ProjectRepo,
	records repos.CanonicalRecordRepo,
	primitives repos.PrimitiveRepo,
	versions repos.OntologyVersionRepo,
	ontologySvc services.OntologyService,
	sampleSize int,
	retries int,
) *Pipeline {
	if sampleSize <= 0 {
		sampleSize = 50
	}
	if retries < 0 {
		retries = 1
	}
	return &Pipeline{
		db:         db,
		log:        baseLog.With("job", domain.JobKindProposeOntology),
		provider:   provider,
		projects:   projects,
		records:    records,
		primitives: primitives,
		versions:   versions,
		ontology:   ontologySvc,
		sampleSize: sampleSize,
		retries:    retries,
	}
}

func (p *Pipeline) Kind() string { return domain.JobKindProposeOntology }
