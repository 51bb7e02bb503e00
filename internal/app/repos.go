package app

import (
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

type Repos struct {
	Projects   repos.ProjectRepo
	Sources    repos.SourceRepo
	Records    repos.CanonicalRecordRepo
	Primitives repos.PrimitiveRepo
	Jobs       repos.JobRunRepo
	Versions   repos.OntologyVersionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Projects:   repos.NewProjectRepo(db, log),
		Sources:    repos.NewSourceRepo(db, log),
		Records:    repos.NewCanonicalRecordRepo(db, log),
		Primitives: repos.NewPrimitiveRepo(db, log),
		Jobs:       repos.NewJobRunRepo(db, log),
		Versions:   repos.NewOntologyVersionRepo(db, log),
	}
}
