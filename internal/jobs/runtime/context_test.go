package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
)

// fakeJobRepo mimics the running-status guard in memory.
type fakeJobRepo struct {
	status  map[uuid.UUID]string
	applied []map[string]interface{}
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{status: map[uuid.UUID]string{}}
}

func (f *fakeJobRepo) Create(ctx context.Context, tx *gorm.DB, job *domain.JobRun) (*domain.JobRun, error) {
	return job, nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.JobRun, error) {
	return nil, domain.NewNotFoundError("job", id.String())
}

func (f *fakeJobRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB) (*domain.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRepo) UpdateIfRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	if f.status[id] != domain.JobStatusRunning {
		return false, nil
	}
	f.applied = append(f.applied, updates)
	if s, ok := updates["status"].(string); ok {
		f.status[id] = s
	}
	return true, nil
}

func (f *fakeJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error { return nil }

func (f *fakeJobRepo) FailTimedOut(ctx context.Context, tx *gorm.DB, kind string, cutoff time.Time, errMsg string) (int64, error) {
	return 0, nil
}

func runningJob(repo *fakeJobRepo) *domain.JobRun {
	job := &domain.JobRun{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Kind:      domain.JobKindExtract,
		Status:    domain.JobStatusRunning,
	}
	repo.status[job.ID] = domain.JobStatusRunning
	return job
}

func TestContextCompleteSetsTerminalState(t *testing.T) {
	repo := newFakeJobRepo()
	job := runningJob(repo)
	jc := NewContext(context.Background(), nil, job, repo, nil)

	jc.Complete(map[string]any{"count": 3})

	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.Progress != 1 {
		t.Fatalf("expected progress 1, got %v", job.Progress)
	}
	if job.CompletedAt == nil {
		t.Fatal("completed_at must be stamped")
	}
	if len(job.Result) == 0 {
		t.Fatal("result must be persisted")
	}
}

func TestContextProgressClampsAndDropsAfterTerminal(t *testing.T) {
	repo := newFakeJobRepo()
	job := runningJob(repo)
	jc := NewContext(context.Background(), nil, job, repo, nil)

	jc.Progress(1.7, "over")
	if job.Progress != 1 {
		t.Fatalf("progress must clamp to 1, got %v", job.Progress)
	}
	jc.Progress(-0.2, "under")
	if job.Progress != 0 {
		t.Fatalf("progress must clamp to 0, got %v", job.Progress)
	}

	jc.Fail(domain.ErrCodeInternal, nil)
	applied := len(repo.applied)

	// Terminal row: further writes are dropped, in-memory state untouched.
	jc.Progress(0.9, "late")
	if len(repo.applied) != applied {
		t.Fatal("progress after terminal state must not write")
	}
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status must remain failed, got %s", job.Status)
	}
}

func TestContextFailRecordsCodeAndPartialResult(t *testing.T) {
	repo := newFakeJobRepo()
	job := runningJob(repo)
	jc := NewContext(context.Background(), nil, job, repo, nil)

	jc.FailWithResult(domain.ErrCodeNoActiveOntology,
		&domain.NoActiveOntologyError{ProjectID: job.ProjectID.String()},
		map[string]any{"records_committed": 7})

	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.ErrorCode != domain.ErrCodeNoActiveOntology {
		t.Fatalf("expected no_active_ontology code, got %q", job.ErrorCode)
	}
	if job.Error == "" {
		t.Fatal("error message must be recorded")
	}
	if len(job.Result) == 0 {
		t.Fatal("partial result must be persisted")
	}
}

func TestContextFailDefaultsCode(t *testing.T) {
	repo := newFakeJobRepo()
	job := runningJob(repo)
	jc := NewContext(context.Background(), nil, job, repo, nil)

	jc.Fail("", nil)
	if job.ErrorCode != domain.ErrCodeInternal {
		t.Fatalf("empty code must default to internal, got %q", job.ErrorCode)
	}
}

func TestPayloadHelpers(t *testing.T) {
	repo := newFakeJobRepo()
	job := runningJob(repo)
	id := uuid.New()
	job.Payload = datatypes.JSON([]byte(`{"parent_version_id":"` + id.String() + `","feedback":"split Person","bad_id":"nope"}`))

	jc := NewContext(context.Background(), nil, job, repo, nil)

	got, ok := jc.PayloadUUID("parent_version_id")
	if !ok || got != id {
		t.Fatalf("expected %s, got %s ok=%v", id, got, ok)
	}
	if _, ok := jc.PayloadUUID("bad_id"); ok {
		t.Fatal("malformed uuid must not parse")
	}
	if _, ok := jc.PayloadUUID("missing"); ok {
		t.Fatal("missing key must not parse")
	}
	if jc.PayloadString("feedback") != "split Person" {
		t.Fatalf("unexpected feedback: %q", jc.PayloadString("feedback"))
	}
	if jc.PayloadString("missing") != "" {
		t.Fatal("missing string key must be empty")
	}
}
