// Package record_extract runs the primitive-extraction job: canonical
// records are sampled per source and sent in bounded batches to the LLM,
// which labels entity/attribute/relation primitives with evidence. Stored
// primitives seed later ontology proposals.
package record_extract

import (
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/llm"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

type Pipeline struct {
	db          *gorm.DB
	log         *logger.Logger
	extractor   llm.PrimitiveExtractor
	projects    repos.ProjectRepo
	sources     repos.SourceRepo
	records     repos.CanonicalRecordRepo
	primitives  repos.PrimitiveRepo
	batchSize   int
	parallelism int
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	extractor llm.PrimitiveExtractor,
	projects repos.ProjectRepo,
	sources repos.SourceRepo,
	records repos.CanonicalRecordRepo,
	primitives repos.PrimitiveRepo,
	batchSize int,
	parallelism int,
) *Pipeline {
	if batchSize <= 0 {
		batchSize = 20
	}
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Pipeline{
		db:          db,
		log:         baseLog.With("job", domain.JobKindExtract),
		extractor:   extractor,
		projects:    projects,
		sources:     sources,
		records:     records,
		primitives:  primitives,
		batchSize:   batchSize,
		parallelism: parallelism,
	}
}

func (p *Pipeline) Kind() string { return domain.JobKindExtract }
