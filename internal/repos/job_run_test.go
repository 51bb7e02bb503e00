package repos

import (
	"context"
	"testing"
	"time"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/repos/testutil"
)

func TestJobRunCreateExclusiveKindConflicts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewJobRunRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)

	first, err := repo.Create(ctx, tx, &domain.JobRun{
		ProjectID: project.ID,
		Kind:      domain.JobKindProposeOntology,
	})
	if err != nil {
		t.Fatalf("first propose job: %v", err)
	}
	if first.Status != domain.JobStatusPending {
		t.Fatalf("expected pending status, got %s", first.Status)
	}

	_, err = repo.Create(ctx, tx, &domain.JobRun{
		ProjectID: project.ID,
		Kind:      domain.JobKindProposeOntology,
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError for second propose job, got %v", err)
	}

	// Non-exclusive kinds stack freely.
	for i := 0; i < 2; i++ {
		if _, err := repo.Create(ctx, tx, &domain.JobRun{
			ProjectID: project.ID,
			Kind:      domain.JobKindQuery,
		}); err != nil {
			t.Fatalf("query job %d: %v", i, err)
		}
	}
}

func TestJobRunExclusivityClearsAfterTerminal(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewJobRunRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)

	job, err := repo.Create(ctx, tx, &domain.JobRun{
		ProjectID: project.ID,
		Kind:      domain.JobKindMaterialize,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := tx.Model(&domain.JobRun{}).Where("id = ?", job.ID).
		Update("status", domain.JobStatusFailed).Error; err != nil {
		t.Fatalf("force fail: %v", err)
	}

	if _, err := repo.Create(ctx, tx, &domain.JobRun{
		ProjectID: project.ID,
		Kind:      domain.JobKindMaterialize,
	}); err != nil {
		t.Fatalf("resubmit after terminal should succeed, got %v", err)
	}
}

func TestClaimNextRunnableTransitionsToRunning(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewJobRunRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)

	created, err := repo.Create(ctx, tx, &domain.JobRun{
		ProjectID: project.ID,
		Kind:      domain.JobKindExtract,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(ctx, tx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != created.ID {
		t.Fatalf("expected to claim job %s, got %+v", created.ID, claimed)
	}
	if claimed.Status != domain.JobStatusRunning {
		t.Fatalf("claimed job should be running, got %s", claimed.Status)
	}
	if claimed.StartedAt == nil || claimed.HeartbeatAt == nil {
		t.Fatal("claim must stamp started_at and heartbeat_at")
	}

	again, err := repo.ClaimNextRunnable(ctx, tx)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again != nil {
		t.Fatalf("no pending jobs left, but claimed %s", again.ID)
	}
}

func TestUpdateIfRunningIsMonotonic(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewJobRunRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)
	job, err := repo.Create(ctx, tx, &domain.JobRun{
		ProjectID: project.ID,
		Kind:      domain.JobKindExtract,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.ClaimNextRunnable(ctx, tx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	ok, err := repo.UpdateIfRunning(ctx, tx, job.ID, map[string]interface{}{
		"progress": 0.5,
		"message":  "halfway",
	})
	if err != nil || !ok {
		t.Fatalf("progress on running job should apply, ok=%v err=%v", ok, err)
	}

	now := time.Now()
	ok, err = repo.UpdateIfRunning(ctx, tx, job.ID, map[string]interface{}{
		"status":       domain.JobStatusCompleted,
		"progress":     1.0,
		"completed_at": now,
	})
	if err != nil || !ok {
		t.Fatalf("completion should apply, ok=%v err=%v", ok, err)
	}

	// Terminal rows reject further transitions.
	ok, err = repo.UpdateIfRunning(ctx, tx, job.ID, map[string]interface{}{
		"status": domain.JobStatusFailed,
		"error":  "late failure",
	})
	if err != nil {
		t.Fatalf("guarded update errored: %v", err)
	}
	if ok {
		t.Fatal("update after terminal state must be a no-op")
	}

	final, err := repo.GetByID(ctx, tx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != domain.JobStatusCompleted {
		t.Fatalf("status must remain completed, got %s", final.Status)
	}
}

func TestFailTimedOutSweepsStaleRunning(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewJobRunRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)
	job, err := repo.Create(ctx, tx, &domain.JobRun{
		ProjectID: project.ID,
		Kind:      domain.JobKindMaterialize,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.ClaimNextRunnable(ctx, tx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	stale := time.Now().Add(-time.Hour)
	if err := tx.Model(&domain.JobRun{}).Where("id = ?", job.ID).
		Update("heartbeat_at", stale).Error; err != nil {
		t.Fatalf("age heartbeat: %v", err)
	}

	n, err := repo.FailTimedOut(ctx, tx, domain.JobKindMaterialize, time.Now().Add(-30*time.Minute), "deadline exceeded")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept job, got %d", n)
	}

	swept, err := repo.GetByID(ctx, tx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if swept.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", swept.Status)
	}
	if swept.ErrorCode != domain.ErrCodeTimeout {
		t.Fatalf("expected timeout code, got %q", swept.ErrorCode)
	}
	if swept.CompletedAt == nil {
		t.Fatal("sweep must stamp completed_at")
	}

	// A fresh sweep with an older cutoff finds nothing.
	n, err = repo.FailTimedOut(ctx, tx, domain.JobKindMaterialize, time.Now().Add(-2*time.Hour), "deadline exceeded")
	if err != nil || n != 0 {
		t.Fatalf("expected empty sweep, n=%d err=%v", n, err)
	}
}
