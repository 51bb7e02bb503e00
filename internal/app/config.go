package app

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/envutil"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

// Config carries the tunables. Environment variables set the base values;
// an optional YAML file named by CONFIG_FILE overrides job timeouts and
// pipeline knobs, which is where most per-deployment tuning happens.
type Config struct {
	Port           string
	ServiceName    string
	Environment    string
	AllowedOrigins []string

	WorkerCount      int
	WorkerPoll       time.Duration
	WatchdogInterval time.Duration
	JobTimeouts      map[string]time.Duration

	ProposalRetries    int
	ProposalSampleSize int
	ExtractBatchSize   int
	ExtractParallelism int
	QueryRowLimit      int
}

// fileConfig is the YAML override shape. Durations are strings in Go
// syntax ("10m", "90s").
type fileConfig struct {
	JobTimeouts        map[string]string `yaml:"job_timeouts"`
	WorkerPoll         string            `yaml:"worker_poll"`
	WatchdogInterval   string            `yaml:"watchdog_interval"`
	WorkerCount        int               `yaml:"worker_count"`
	ProposalRetries    *int              `yaml:"proposal_retries"`
	ProposalSampleSize int               `yaml:"proposal_sample_size"`
	ExtractBatchSize   int               `yaml:"extract_batch_size"`
	ExtractParallelism int               `yaml:"extract_parallelism"`
	QueryRowLimit      int               `yaml:"query_row_limit"`
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.GetEnv("PORT", "8080", log),
		ServiceName: envutil.GetEnv("SERVICE_NAME", "ontomap-backend", log),
		Environment: envutil.GetEnv("ENVIRONMENT", "development", log),

		WorkerCount:      envutil.GetEnvAsInt("WORKER_COUNT", 4, log),
		WorkerPoll:       time.Duration(envutil.GetEnvAsInt("WORKER_POLL_MS", 1000, log)) * time.Millisecond,
		WatchdogInterval: time.Duration(envutil.GetEnvAsInt("WATCHDOG_INTERVAL_SECONDS", 15, log)) * time.Second,
		JobTimeouts: map[string]time.Duration{
			domain.JobKindExtract:         time.Duration(envutil.GetEnvAsInt("EXTRACT_TIMEOUT_SECONDS", 1800, log)) * time.Second,
			domain.JobKindProposeOntology: time.Duration(envutil.GetEnvAsInt("PROPOSE_TIMEOUT_SECONDS", 600, log)) * time.Second,
			domain.JobKindMaterialize:     time.Duration(envutil.GetEnvAsInt("MATERIALIZE_TIMEOUT_SECONDS", 1800, log)) * time.Second,
			domain.JobKindQuery:           time.Duration(envutil.GetEnvAsInt("QUERY_TIMEOUT_SECONDS", 120, log)) * time.Second,
		},

		ProposalRetries:    envutil.GetEnvAsInt("PROPOSAL_RETRIES", 1, log),
		ProposalSampleSize: envutil.GetEnvAsInt("PROPOSAL_SAMPLE_SIZE", 50, log),
		ExtractBatchSize:   envutil.GetEnvAsInt("EXTRACT_BATCH_SIZE", 20, log),
		ExtractParallelism: envutil.GetEnvAsInt("EXTRACT_PARALLELISM", 4, log),
		QueryRowLimit:      envutil.GetEnvAsInt("QUERY_ROW_LIMIT", 100, log),
	}

	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFileConfig(&cfg, path); err != nil {
			log.Warn("config file not applied", "path", path, "error", err)
		} else {
			log.Info("config file applied", "path", path)
		}
	}
	return cfg
}

func applyFileConfig(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return err
	}

	for kind, v := range fc.JobTimeouts {
		if !domain.ValidJobKind(kind) {
			continue
		}
		if d, pErr := time.ParseDuration(v); pErr == nil && d > 0 {
			cfg.JobTimeouts[kind] = d
		}
	}
	if fc.WorkerPoll != "" {
		if d, pErr := time.ParseDuration(fc.WorkerPoll); pErr == nil && d > 0 {
			cfg.WorkerPoll = d
		}
	}
	if fc.WatchdogInterval != "" {
		if d, pErr := time.ParseDuration(fc.WatchdogInterval); pErr == nil && d > 0 {
			cfg.WatchdogInterval = d
		}
	}
	if fc.WorkerCount > 0 {
		cfg.WorkerCount = fc.WorkerCount
	}
	if fc.ProposalRetries != nil && *fc.ProposalRetries >= 0 {
		cfg.ProposalRetries = *fc.ProposalRetries
	}
	if fc.ProposalSampleSize > 0 {
		cfg.ProposalSampleSize = fc.ProposalSampleSize
	}
	if fc.ExtractBatchSize > 0 {
		cfg.ExtractBatchSize = fc.ExtractBatchSize
	}
	if fc.ExtractParallelism > 0 {
		cfg.ExtractParallelism = fc.ExtractParallelism
	}
	if fc.QueryRowLimit > 0 {
		cfg.QueryRowLimit = fc.QueryRowLimit
	}
	return nil
}
