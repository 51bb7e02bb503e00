package repos

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/repos/testutil"
)

func proposedVersion(projectID uuid.UUID) *domain.OntologyVersion {
	return &domain.OntologyVersion{
		ProjectID:     projectID,
		Classes:       datatypes.JSON(`[{"name":"Person","properties":[{"name":"name","type":"string","required":true}]}]`),
		RelationTypes: datatypes.JSON(`[]`),
	}
}

func TestCreateProposedAssignsSequenceNumbers(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)

	v1, err := repo.CreateProposed(ctx, tx, proposedVersion(project.ID))
	if err != nil {
		t.Fatalf("first propose: %v", err)
	}
	v2, err := repo.CreateProposed(ctx, tx, proposedVersion(project.ID))
	if err != nil {
		t.Fatalf("second propose: %v", err)
	}
	if v1.SequenceNumber != 1 || v2.SequenceNumber != 2 {
		t.Fatalf("expected sequence 1,2 got %d,%d", v1.SequenceNumber, v2.SequenceNumber)
	}
	if v1.Status != domain.VersionStatusProposed || v2.Status != domain.VersionStatusProposed {
		t.Fatalf("new versions must be proposed, got %s/%s", v1.Status, v2.Status)
	}
}

func TestCreateProposedRejectsUnknownParent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)

	bogus := uuid.New()
	v := proposedVersion(project.ID)
	v.ParentVersionID = &bogus
	if _, err := repo.CreateProposed(ctx, tx, v); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for unknown parent, got %v", err)
	}

	// Nothing persisted on failure.
	var count int64
	if err := tx.Model(&domain.OntologyVersion{}).
		Where("project_id = ?", project.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed propose must persist nothing, found %d rows", count)
	}
}

func TestCreateProposedRejectsUnknownProject(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(tx, log)

	if _, err := repo.CreateProposed(context.Background(), tx, proposedVersion(uuid.New())); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAcceptPromotesAndDemotes(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)

	v1, err := repo.CreateProposed(ctx, tx, proposedVersion(project.ID))
	if err != nil {
		t.Fatalf("propose v1: %v", err)
	}
	v2, err := repo.CreateProposed(ctx, tx, proposedVersion(project.ID))
	if err != nil {
		t.Fatalf("propose v2: %v", err)
	}

	accepted, err := repo.Accept(ctx, tx, v1.ID)
	if err != nil {
		t.Fatalf("accept v1: %v", err)
	}
	if accepted.Status != domain.VersionStatusActive {
		t.Fatalf("expected active, got %s", accepted.Status)
	}

	active, err := repo.GetActive(ctx, tx, project.ID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active == nil || active.ID != v1.ID {
		t.Fatalf("expected v1 active, got %+v", active)
	}

	if _, err := repo.Accept(ctx, tx, v2.ID); err != nil {
		t.Fatalf("accept v2: %v", err)
	}

	prev, err := repo.GetByID(ctx, tx, v1.ID)
	if err != nil {
		t.Fatalf("get v1: %v", err)
	}
	if prev.Status != domain.VersionStatusSuperseded {
		t.Fatalf("v1 should be superseded after v2 accept, got %s", prev.Status)
	}

	active, err = repo.GetActive(ctx, tx, project.ID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active == nil || active.ID != v2.ID {
		t.Fatalf("expected v2 active, got %+v", active)
	}
}

func TestAcceptRejectsNonProposedVersions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)
	v, err := repo.CreateProposed(ctx, tx, proposedVersion(project.ID))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := repo.Accept(ctx, tx, v.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Re-accepting the now-active version is a conflict, as is accepting a
	// superseded one later.
	if _, err := repo.Accept(ctx, tx, v.ID); !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError re-accepting active version, got %v", err)
	}
}

func TestAcceptConcurrentFirstCommitterWins(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(db, log)
	ctx := context.Background()

	// Runs on committed rows so the two accepts land on separate pool
	// connections; clean up explicitly instead of rolling back.
	project := testutil.CreateProject(t, db)
	t.Cleanup(func() {
		db.Where("project_id = ?", project.ID).Delete(&domain.OntologyVersion{})
		db.Delete(project)
	})

	v, err := repo.CreateProposed(ctx, nil, proposedVersion(project.ID))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	// Both accepts target the same version. The winner promotes it; the
	// loser fails either on the NOWAIT project lock or on the status guard,
	// and both of those surface as ConflictError.
	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, aErr := repo.Accept(ctx, nil, v.ID)
			errs <- aErr
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for aErr := range errs {
		switch {
		case aErr == nil:
			wins++
		case domain.IsConflict(aErr):
			conflicts++
		default:
			t.Fatalf("concurrent accept must win or conflict, got %v", aErr)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected one winner and one conflict, got %d wins / %d conflicts", wins, conflicts)
	}

	active, err := repo.GetActive(ctx, nil, project.ID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active == nil || active.ID != v.ID {
		t.Fatalf("expected %s active, got %+v", v.ID, active)
	}

	var activeCount int64
	if err := db.Model(&domain.OntologyVersion{}).
		Where("project_id = ? AND status = ?", project.ID, domain.VersionStatusActive).
		Count(&activeCount).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	if activeCount != 1 {
		t.Fatalf("single-active invariant broken: %d active rows", activeCount)
	}
}

func TestAcceptUnknownVersion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(tx, log)

	if _, err := repo.Accept(context.Background(), tx, uuid.New()); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestGetActiveNilWhenNone(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(tx, log)

	project := testutil.CreateProject(t, tx)
	active, err := repo.GetActive(context.Background(), tx, project.ID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active != nil {
		t.Fatalf("expected nil, got %+v", active)
	}
}

func TestListByProjectOrdersBySequence(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewOntologyVersionRepo(tx, log)
	ctx := context.Background()

	project := testutil.CreateProject(t, tx)
	for i := 0; i < 3; i++ {
		if _, err := repo.CreateProposed(ctx, tx, proposedVersion(project.ID)); err != nil {
			t.Fatalf("propose %d: %v", i, err)
		}
	}

	versions, err := repo.ListByProject(ctx, tx, project.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.SequenceNumber != i+1 {
			t.Fatalf("expected ascending sequence, got %d at index %d", v.SequenceNumber, i)
		}
	}
}
