package app

import (
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/graph"
	"github.com/ontomap/ontomap-backend/internal/jobs"
	"github.com/ontomap/ontomap-backend/internal/jobs/pipeline/graph_materialize"
	"github.com/ontomap/ontomap-backend/internal/jobs/pipeline/graph_query"
	"github.com/ontomap/ontomap-backend/internal/jobs/pipeline/ontology_propose"
	"github.com/ontomap/ontomap-backend/internal/jobs/pipeline/record_extract"
	"github.com/ontomap/ontomap-backend/internal/jobs/runtime"
	"github.com/ontomap/ontomap-backend/internal/llm"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/services"
)

type Services struct {
	Projects services.ProjectService
	Sources  services.SourceService
	Jobs     services.JobService
	Ontology services.OntologyService
	Notifier services.JobNotifier

	Graph    graph.Store
	Registry *runtime.Registry
	Worker   *jobs.Worker
	Watchdog *jobs.Watchdog
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, graphStore graph.Store, ai llm.Provider) (Services, error) {
	notifier, err := services.NewRedisJobNotifier(log)
	if err != nil {
		return Services{}, err
	}
	if notifier == nil {
		log.Info("REDIS_ADDR unset, job events disabled")
	}

	ontologySvc := services.NewOntologyService(db, log, r.Versions, r.Projects, graphStore)

	registry := runtime.NewRegistry()
	pipelines := []runtime.Handler{
		record_extract.New(db, log, ai, r.Projects, r.Sources, r.Records, r.Primitives, cfg.ExtractBatchSize, cfg.ExtractParallelism),
		ontology_propose.New(db, log, ai, r.Projects, r.Records, r.Primitives, r.Versions, ontologySvc, cfg.ProposalSampleSize, cfg.ProposalRetries),
		graph_materialize.New(db, log, r.Projects, r.Records, r.Versions, graphStore),
		graph_query.New(db, log, ai, r.Versions, graphStore, cfg.QueryRowLimit),
	}
	for _, p := range pipelines {
		if err := registry.Register(p); err != nil {
			return Services{}, err
		}
	}

	return Services{
		Projects: services.NewProjectService(db, log, r.Projects),
		Sources:  services.NewSourceService(db, log, r.Sources, r.Records, r.Projects),
		Jobs:     services.NewJobService(db, log, r.Jobs, r.Projects, notifier),
		Ontology: ontologySvc,
		Notifier: notifier,
		Graph:    graphStore,
		Registry: registry,
		Worker:   jobs.NewWorker(db, log, r.Jobs, registry, notifier, cfg.WorkerPoll, cfg.WorkerCount),
		Watchdog: jobs.NewWatchdog(db, log, r.Jobs, cfg.WatchdogInterval, cfg.JobTimeouts),
	}, nil
}
