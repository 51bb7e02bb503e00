// Package graph_materialize projects canonical records into the instance
// graph under the active ontology version. The mapping is caller-assigned in
// the job payload and written in two phases: every mapped record becomes one
// atomic instance-node write, then all relationship edges go in as a single
// batch once both endpoints exist. A mid-stream failure leaves only whole
// records behind and a re-run converges by MERGE on deterministic ids.
package graph_materialize

import (
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/graph"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	projects repos.ProjectRepo
	records  repos.CanonicalRecordRepo
	versions repos.OntologyVersionRepo
	graph    graph.Store
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	projects repos.ProjectRepo,
	records repos.CanonicalRecordRepo,
	versions repos.OntologyVersionRepo,
	graphStore graph.Store,
) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", domain.JobKindMaterialize),
		projects: projects,
		records:  records,
		versions: versions,
		graph:    graphStore,
	}
}

func (p *Pipeline) Kind() string { return domain.JobKindMaterialize }
