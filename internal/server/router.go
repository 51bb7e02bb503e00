package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ontomap/ontomap-backend/internal/handlers"
)

type RouterConfig struct {
	ServiceName     string
	AllowedOrigins  []string
	Projects        *handlers.ProjectsHandler
	Sources         *handlers.SourcesHandler
	Jobs            *handlers.JobsHandler
	Ontology        *handlers.OntologyHandler
	Materialization *handlers.MaterializationHandler
	Query           *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware(cfg.ServiceName))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		// Projects
		api.POST("/projects", cfg.Projects.Create)
		api.GET("/projects", cfg.Projects.List)
		api.GET("/projects/:id", cfg.Projects.Get)

		// Sources & records
		api.POST("/projects/:id/sources", cfg.Sources.Ingest)
		api.GET("/projects/:id/sources", cfg.Sources.List)
		api.GET("/projects/:id/records", cfg.Sources.ListRecords)

		// Jobs
		api.GET("/jobs/:id", cfg.Jobs.Get)
		api.GET("/projects/:id/jobs", cfg.Jobs.ListByProject)
		api.POST("/projects/:id/extract", cfg.Jobs.SubmitExtract)

		// Ontology lifecycle
		api.POST("/projects/:id/ontology/propose", cfg.Ontology.SubmitPropose)
		api.GET("/projects/:id/ontology/versions", cfg.Ontology.ListVersions)
		api.GET("/projects/:id/ontology/active", cfg.Ontology.GetActive)
		api.GET("/ontology/versions/:id", cfg.Ontology.GetVersion)
		api.POST("/ontology/versions/:id/accept", cfg.Ontology.Accept)
		api.GET("/ontology/diff", cfg.Ontology.Diff)

		// Materialization & graph
		api.POST("/projects/:id/materialize", cfg.Materialization.SubmitMaterialize)
		api.GET("/projects/:id/graph/stats", cfg.Materialization.GraphStats)
		api.DELETE("/projects/:id/graph", cfg.Materialization.ResetGraph)

		// Query gate
		api.POST("/projects/:id/query", cfg.Query.SubmitQuery)
	}

	return router
}
