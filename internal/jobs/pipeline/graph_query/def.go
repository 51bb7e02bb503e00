// Package graph_query runs the natural-language query job: the question and
// the active version's schema context go to the translator, the returned
// Cypher passes the read-only guard, and only then does it execute in a
// read-mode session with capped rows. The translation is stored alongside
// the rows so callers can audit what was actually asked of the graph.
package graph_query

import (
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/graph"
	"github.com/ontomap/ontomap-backend/internal/llm"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

type Pipeline struct {
	db         *gorm.DB
	log        *logger.Logger
	translator llm.QueryTranslator
	versions   repos.OntologyVersionRepo
	graph      graph.Store
	rowLimit   int
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	translator llm.QueryTranslator,
	versions repos.OntologyVersionRepo,
	graphStore graph.Store,
	rowLimit int,
) *Pipeline {
	if rowLimit <= 0 {
		rowLimit = 100
	}
	return &Pipeline{
		db:         db,
		log:        baseLog.With("job", domain.JobKindQuery),
		translator: translator,
		versions:   versions,
		graph:      graphStore,
		rowLimit:   rowLimit,
	}
}

func (p *Pipeline) Kind() string { return domain.JobKindQuery }
