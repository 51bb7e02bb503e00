package app

import (
	"github.com/ontomap/ontomap-backend/internal/handlers"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

type Handlers struct {
	Projects        *handlers.ProjectsHandler
	Sources         *handlers.SourcesHandler
	Jobs            *handlers.JobsHandler
	Ontology        *handlers.OntologyHandler
	Materialization *handlers.MaterializationHandler
	Query           *handlers.QueryHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	return Handlers{
		Projects:        handlers.NewProjectsHandler(s.Projects),
		Sources:         handlers.NewSourcesHandler(s.Sources),
		Jobs:            handlers.NewJobsHandler(s.Jobs),
		Ontology:        handlers.NewOntologyHandler(s.Ontology, s.Jobs),
		Materialization: handlers.NewMaterializationHandler(s.Jobs, s.Projects, s.Graph),
		Query:           handlers.NewQueryHandler(s.Jobs),
	}
}
