package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

type sweepCall struct {
	kind   string
	cutoff time.Time
	errMsg string
}

type sweepRecordingRepo struct {
	calls []sweepCall
}

func (r *sweepRecordingRepo) Create(ctx context.Context, tx *gorm.DB, job *domain.JobRun) (*domain.JobRun, error) {
	return job, nil
}
func (r *sweepRecordingRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.JobRun, error) {
	return nil, domain.NewNotFoundError("job", id.String())
}
func (r *sweepRecordingRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.JobRun, error) {
	return nil, nil
}
func (r *sweepRecordingRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB) (*domain.JobRun, error) {
	return nil, nil
}
func (r *sweepRecordingRepo) UpdateIfRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	return false, nil
}
func (r *sweepRecordingRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}
func (r *sweepRecordingRepo) FailTimedOut(ctx context.Context, tx *gorm.DB, kind string, cutoff time.Time, errMsg string) (int64, error) {
	r.calls = append(r.calls, sweepCall{kind: kind, cutoff: cutoff, errMsg: errMsg})
	return 0, nil
}

func TestWatchdogSweepUsesKindDeadlines(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	repo := &sweepRecordingRepo{}
	deadline := 90 * time.Second
	w := NewWatchdog(nil, log, repo, time.Second, map[string]time.Duration{
		domain.JobKindQuery: deadline,
		"zeroed":            0, // never swept
	})

	before := time.Now()
	w.sweep(context.Background())

	if len(repo.calls) != 1 {
		t.Fatalf("expected 1 sweep call, got %d", len(repo.calls))
	}
	call := repo.calls[0]
	if call.kind != domain.JobKindQuery {
		t.Fatalf("swept kind %q, want %q", call.kind, domain.JobKindQuery)
	}
	wantMsg := (&domain.TimeoutError{Kind: domain.JobKindQuery, Deadline: deadline.String()}).Error()
	if call.errMsg != wantMsg {
		t.Fatalf("sweep message %q, want %q", call.errMsg, wantMsg)
	}
	gap := before.Add(-deadline).Sub(call.cutoff)
	if gap < -time.Second || gap > time.Second {
		t.Fatalf("cutoff %v not ~%v before sweep time", call.cutoff, deadline)
	}
}
