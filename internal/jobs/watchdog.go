package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/repos"
)

// Watchdog sweeps running jobs whose heartbeat predates the per-kind
// deadline and fails them with a timeout code. Handlers that later try to
// finish a swept job hit the running-status guard and their writes are
// dropped, so the timeout transition is final.
type Watchdog struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.JobRunRepo
	interval  time.Duration
	deadlines map[string]time.Duration
}

func NewWatchdog(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, interval time.Duration, deadlines map[string]time.Duration) *Watchdog {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watchdog{
		db:        db,
		log:       baseLog.With("component", "JobWatchdog"),
		repo:      repo,
		interval:  interval,
		deadlines: deadlines,
	}
}

func (w *Watchdog) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

func (w *Watchdog) sweep(ctx context.Context) {
	now := time.Now()
	for kind, deadline := range w.deadlines {
		if deadline <= 0 {
			continue
		}
		cutoff := now.Add(-deadline)
		msg := (&domain.TimeoutError{Kind: kind, Deadline: deadline.String()}).Error()
		n, err := w.repo.FailTimedOut(ctx, w.db, kind, cutoff, msg)
		if err != nil {
			w.log.Warn("timeout sweep failed", "kind", kind, "error", err)
			continue
		}
		if n > 0 {
			w.log.Warn("failed timed-out jobs", "kind", kind, "count", n, "deadline", deadline.String())
		}
	}
}
