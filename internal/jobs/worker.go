// Package jobs runs the asynchronous side of the system: worker loops that
// claim pending job_run rows and dispatch them to registered handlers, plus a
// watchdog that fails runs whose heartbeat has gone stale.
package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/jobs/runtime"
	"github.com/ontomap/ontomap-backend/internal/observability"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
	"github.com/ontomap/ontomap-backend/internal/services"
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	poll     time.Duration
	count    int
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, poll time.Duration, count int) *Worker {
	if poll <= 0 {
		poll = time.Second
	}
	if count <= 0 {
		count = 1
	}
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		poll:     poll,
		count:    count,
	}
}

// Start launches the configured number of claim loops. Each loop claims at
// most one job per tick; SKIP LOCKED in the claim query keeps loops from
// contending on the same row.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.count; i++ {
		go w.loop(ctx, i)
	}
}

func (w *Worker) loop(ctx context.Context, slot int) {
	log := w.log.With("slot", slot)
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextRunnable(ctx, w.db)
			if err != nil {
				log.Warn("ClaimNextRunnable failed", "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.execute(ctx, log, job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, log *logger.Logger, job *domain.JobRun) {
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)

	h, ok := w.registry.Get(job.Kind)
	if !ok {
		log.Warn("no handler registered for job kind", "kind", job.Kind, "job_id", job.ID)
		jc.Fail("", &missingHandlerError{Kind: job.Kind})
		observability.JobFinished(job.Kind, "failed", 0)
		return
	}

	started := time.Now()
	// A panicking handler must not take the loop down; the job is marked
	// failed and the loop keeps claiming.
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("job handler panic", "job_id", job.ID, "kind", job.Kind, "panic", r)
				jc.Fail("", fmt.Errorf("handler panic: %v", r))
			}
		}()
		if err := h.Run(jc); err != nil {
			// Handlers normally call Fail themselves with a precise code;
			// this is the backstop for errors they let escape.
			log.Error("job handler error", "job_id", job.ID, "kind", job.Kind, "error", err)
			jc.Fail("", err)
		}
	}()

	observability.JobFinished(job.Kind, jc.Job.Status, time.Since(started))
}

type missingHandlerError struct{ Kind string }

func (e *missingHandlerError) Error() string { return "no handler registered for job kind=" + e.Kind }
