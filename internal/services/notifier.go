package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

// JobNotifier publishes job lifecycle events to interested consumers (UIs
// polling is still authoritative; events are a latency optimization).
type JobNotifier interface {
	JobCreated(ctx context.Context, job *domain.JobRun)
	JobProgress(ctx context.Context, job *domain.JobRun, progress float64, message string)
	JobCompleted(ctx context.Context, job *domain.JobRun)
	JobFailed(ctx context.Context, job *domain.JobRun, code string, errorMessage string)
	Close() error
}

const (
	jobEventCreated   = "job.created"
	jobEventProgress  = "job.progress"
	jobEventCompleted = "job.completed"
	jobEventFailed    = "job.failed"
)

type jobEvent struct {
	Event     string          `json:"event"`
	JobID     string          `json:"job_id"`
	ProjectID string          `json:"project_id"`
	Kind      string          `json:"kind"`
	Status    string          `json:"status"`
	Progress  float64         `json:"progress"`
	Message   string          `json:"message,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Error     string          `json:"error,omitempty"`
	Job       *domain.JobRun  `json:"job,omitempty"`
	At        time.Time       `json:"at"`
}

type redisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisJobNotifier connects to REDIS_ADDR and publishes job events on
// REDIS_CHANNEL (default "jobs"). Returns (nil, nil) when REDIS_ADDR is
// unset so the caller can run without an event bus.
func NewRedisJobNotifier(log *logger.Logger) (JobNotifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if ch == "" {
		ch = "jobs"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisNotifier{
		log:     log.With("service", "RedisJobNotifier"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (n *redisNotifier) publish(ctx context.Context, ev jobEvent) {
	if n == nil || n.rdb == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ev.At = time.Now().UTC()
	raw, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn("job event marshal failed", "event", ev.Event, "error", err)
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.log.Warn("job event publish failed", "event", ev.Event, "error", err)
	}
}

func (n *redisNotifier) JobCreated(ctx context.Context, job *domain.JobRun) {
	if job == nil {
		return
	}
	n.publish(ctx, jobEvent{
		Event:     jobEventCreated,
		JobID:     job.ID.String(),
		ProjectID: job.ProjectID.String(),
		Kind:      job.Kind,
		Status:    job.Status,
		Job:       job,
	})
}

func (n *redisNotifier) JobProgress(ctx context.Context, job *domain.JobRun, progress float64, message string) {
	if job == nil {
		return
	}
	n.publish(ctx, jobEvent{
		Event:     jobEventProgress,
		JobID:     job.ID.String(),
		ProjectID: job.ProjectID.String(),
		Kind:      job.Kind,
		Status:    job.Status,
		Progress:  progress,
		Message:   message,
	})
}

func (n *redisNotifier) JobCompleted(ctx context.Context, job *domain.JobRun) {
	if job == nil {
		return
	}
	n.publish(ctx, jobEvent{
		Event:     jobEventCompleted,
		JobID:     job.ID.String(),
		ProjectID: job.ProjectID.String(),
		Kind:      job.Kind,
		Status:    job.Status,
		Progress:  1,
		Job:       job,
	})
}

func (n *redisNotifier) JobFailed(ctx context.Context, job *domain.JobRun, code string, errorMessage string) {
	if job == nil {
		return
	}
	n.publish(ctx, jobEvent{
		Event:     jobEventFailed,
		JobID:     job.ID.String(),
		ProjectID: job.ProjectID.String(),
		Kind:      job.Kind,
		Status:    job.Status,
		ErrorCode: code,
		Error:     errorMessage,
	})
}

func (n *redisNotifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}
