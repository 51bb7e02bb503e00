// Package app wires the whole backend: config, Postgres, Neo4j, the LLM
// client, repos, services, the job worker pool, and the HTTP router.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/db"
	"github.com/ontomap/ontomap-backend/internal/graph"
	"github.com/ontomap/ontomap-backend/internal/llm"
	"github.com/ontomap/ontomap-backend/internal/observability"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/platform/neo4jdb"
	"github.com/ontomap/ontomap-backend/internal/server"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	neo4j        *neo4jdb.Client
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init neo4j: %w", err)
	}
	var graphStore graph.Store
	if neo != nil {
		graphStore = graph.NewStore(neo, log)
	} else {
		log.Warn("NEO4J_URI unset, graph operations will fail until configured")
		graphStore = graph.NewStore(nil, log)
	}

	ai, err := llm.NewProviderFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init llm provider: %w", err)
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, graphStore, ai)
	if err != nil {
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, serviceset)

	router := server.NewRouter(server.RouterConfig{
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  cfg.AllowedOrigins,
		Projects:        handlerset.Projects,
		Sources:         handlerset.Sources,
		Jobs:            handlerset.Jobs,
		Ontology:        handlerset.Ontology,
		Materialization: handlerset.Materialization,
		Query:           handlerset.Query,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		neo4j:        neo,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the worker pool and the watchdog.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.Worker != nil {
		a.Services.Worker.Start(ctx)
	}
	if a.Services.Watchdog != nil {
		a.Services.Watchdog.Start(ctx)
	}
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Notifier != nil {
		_ = a.Services.Notifier.Close()
	}
	if a.neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.neo4j.Close(ctx)
		cancel()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
