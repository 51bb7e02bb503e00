package graph_materialize

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/graph"
	jobrt "github.com/ontomap/ontomap-backend/internal/jobs/runtime"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

// In-memory stand-ins for the storage and graph boundaries.

type fakeJobRepo struct {
	status map[uuid.UUID]string
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
	if s, ok := updates["status"].(string); ok {
		f.status[id] = s
	}
	return true, nil
}
func (f *fakeJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error { return nil }
func (f *fakeJobRepo) FailTimedOut(ctx context.Context, tx *gorm.DB, kind string, cutoff time.Time, errMsg string) (int64, error) {
	return 0, nil
}

type fakeProjects struct{}

func (fakeProjects) Create(ctx context.Context, tx *gorm.DB, p *domain.Project) (*domain.Project, error) {
	return p, nil
}
func (fakeProjects) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Project, error) {
	return &domain.Project{ID: id, Status: domain.ProjectStatusBuilding}, nil
}
func (fakeProjects) List(ctx context.Context, tx *gorm.DB) ([]*domain.Project, error) {
	return nil, nil
}
func (fakeProjects) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return nil
}

type fakeRecords struct {
	records map[uuid.UUID]*domain.CanonicalRecord
}

func (f *fakeRecords) CreateBatch(ctx context.Context, tx *gorm.DB, rs []*domain.CanonicalRecord) ([]*domain.CanonicalRecord, error) {
	return rs, nil
}
func (f *fakeRecords) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, offset, limit int) ([]*domain.CanonicalRecord, error) {
	return nil, nil
}
func (f *fakeRecords) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.CanonicalRecord, error) {
	var out []*domain.CanonicalRecord
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeRecords) CountByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error) {
	return int64(len(f.records)), nil
}
func (f *fakeRecords) SampleByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, limit int) ([]*domain.CanonicalRecord, error) {
	return nil, nil
}

type fakeVersions struct {
	active *domain.OntologyVersion
}

func (f *fakeVersions) CreateProposed(ctx context.Context, tx *gorm.DB, v *domain.OntologyVersion) (*domain.OntologyVersion, error) {
	return v, nil
}
func (f *fakeVersions) Accept(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.OntologyVersion, error) {
	return nil, domain.NewNotFoundError("ontology version", id.String())
}
func (f *fakeVersions) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.OntologyVersion, error) {
	return nil, domain.NewNotFoundError("ontology version", id.String())
}
func (f *fakeVersions) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.OntologyVersion, error) {
	return nil, nil
}
func (f *fakeVersions) GetActive(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*domain.OntologyVersion, error) {
	return f.active, nil
}

type fakeStore struct {
	synced         bool
	materialized   []graph.MaterializeRecordInput
	edges          []graph.RelationshipWrite
	nodesBeforeRel int // instance count at the moment edges were applied
	failAt         int // fail the Nth MaterializeRecord call (1-based), 0 = never
}

func (f *fakeStore) SyncOntology(ctx context.Context, v *domain.OntologyVersion, s domain.OntologySchema) error {
	f.synced = true
	return nil
}
func (f *fakeStore) MaterializeRecord(ctx context.Context, in graph.MaterializeRecordInput) error {
	if f.failAt > 0 && len(f.materialized)+1 == f.failAt {
		return fmt.Errorf("neo4j unavailable")
	}
	f.materialized = append(f.materialized, in)
	return nil
}
func (f *fakeStore) ApplyRelationships(ctx context.Context, relationships []graph.RelationshipWrite) error {
	f.nodesBeforeRel = len(f.materialized)
	f.edges = append(f.edges, relationships...)
	return nil
}
func (f *fakeStore) Stats(ctx context.Context, projectID uuid.UUID) (graph.Stats, error) {
	return graph.Stats{}, nil
}
func (f *fakeStore) ResetProject(ctx context.Context, projectID uuid.UUID) error { return nil }
func (f *fakeStore) RunReadQuery(ctx context.Context, cypher string, params map[string]any, rowLimit int) ([]map[string]any, error) {
	return nil, nil
}

func activeVersion() *domain.OntologyVersion {
	return &domain.OntologyVersion{
		ID:             uuid.New(),
		SequenceNumber: 1,
		Status:         domain.VersionStatusActive,
		Classes: datatypes.JSON(`[
			{"name":"Person","properties":[{"name":"name","type":"string","required":true}]},
			{"name":"Company","properties":[{"name":"name","type":"string","required":true}]}
		]`),
		RelationTypes: datatypes.JSON(`[
			{"name":"WORKS_FOR","source_class":"Person","target_class":"Company","cardinality":"many-to-one"}
		]`),
	}
}

type fixture struct {
	pipeline *Pipeline
	jobs     *fakeJobRepo
	store    *fakeStore
	job      *domain.JobRun
	project  uuid.UUID
	personID uuid.UUID
	coID     uuid.UUID
}

func setup(t *testing.T, versions *fakeVersions, store *fakeStore) *fixture {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	projectID := uuid.New()
	personID := uuid.New()
	coID := uuid.New()
	records := &fakeRecords{records: map[uuid.UUID]*domain.CanonicalRecord{
		personID: {ID: personID, ProjectID: projectID, Fields: datatypes.JSON(`{"full_name":"Ada","employer":"Initech"}`)},
		coID:     {ID: coID, ProjectID: projectID, Fields: datatypes.JSON(`{"company_name":"Initech"}`)},
	}}

	jobs := &fakeJobRepo{status: map[uuid.UUID]string{}}
	job := &domain.JobRun{
		ID:        uuid.New(),
		ProjectID: projectID,
		Kind:      domain.JobKindMaterialize,
		Status:    domain.JobStatusRunning,
	}
	jobs.status[job.ID] = domain.JobStatusRunning

	return &fixture{
		pipeline: New(nil, log, fakeProjects{}, records, versions, store),
		jobs:     jobs,
		store:    store,
		job:      job,
		project:  projectID,
		personID: personID,
		coID:     coID,
	}
}

func (f *fixture) runWithPayload(t *testing.T, payload map[string]any) *jobrt.Context {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	f.job.Payload = datatypes.JSON(raw)
	jc := jobrt.NewContext(context.Background(), nil, f.job, f.jobs, nil)
	if err := f.pipeline.Run(jc); err != nil {
		t.Fatalf("run: %v", err)
	}
	return jc
}

func (f *fixture) defaultPayload() map[string]any {
	return map[string]any{
		"mappings": []map[string]any{
			{"source_record_id": f.personID.String(), "class_name": "Person", "property_map": map[string]string{"full_name": "name"}},
			{"source_record_id": f.coID.String(), "class_name": "Company", "property_map": map[string]string{"company_name": "name"}},
		},
		"relationships": []map[string]any{
			{"source_record_id": f.personID.String(), "target_record_id": f.coID.String(), "relation_type": "WORKS_FOR"},
		},
	}
}

func TestMaterializeHappyPath(t *testing.T) {
	f := setup(t, &fakeVersions{active: activeVersion()}, &fakeStore{})
	f.runWithPayload(t, f.defaultPayload())

	if f.job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (%s: %s)", f.job.Status, f.job.ErrorCode, f.job.Error)
	}
	if !f.store.synced {
		t.Fatal("ontology schema must be synced before materialization")
	}
	if len(f.store.materialized) != 2 {
		t.Fatalf("expected 2 record writes, got %d", len(f.store.materialized))
	}

	var result map[string]any
	if err := json.Unmarshal(f.job.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result["records_committed"] != float64(2) {
		t.Fatalf("expected 2 committed, got %v", result["records_committed"])
	}
	if result["relationship_count"] != float64(1) {
		t.Fatalf("expected 1 relationship, got %v", result["relationship_count"])
	}

	// Deterministic identity: the person instance id is derivable.
	want := graph.InstanceID(f.project, f.personID, "Person")
	found := false
	for _, m := range f.store.materialized {
		if m.Instance.ID == want {
			found = true
			if m.Instance.Properties["name"] != "Ada" {
				t.Fatalf("property_map not applied: %+v", m.Instance.Properties)
			}
		}
	}
	if !found {
		t.Fatal("person instance not written under its deterministic id")
	}
}

func TestMaterializeWritesAllNodesBeforeEdges(t *testing.T) {
	f := setup(t, &fakeVersions{active: activeVersion()}, &fakeStore{})
	// The WORKS_FOR edge targets the company record, which is mapped after
	// the person in the payload; the edge must still come out the other end.
	f.runWithPayload(t, f.defaultPayload())

	if f.job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (%s: %s)", f.job.Status, f.job.ErrorCode, f.job.Error)
	}
	if len(f.store.edges) != 1 {
		t.Fatalf("expected 1 edge applied, got %d", len(f.store.edges))
	}
	if f.store.nodesBeforeRel != 2 {
		t.Fatalf("edges applied after %d of 2 instance writes; all endpoint nodes must exist first", f.store.nodesBeforeRel)
	}
	edge := f.store.edges[0]
	if edge.TargetInstanceID != graph.InstanceID(f.project, f.coID, "Company") {
		t.Fatalf("edge target %s does not address the company instance", edge.TargetInstanceID)
	}
	if edge.SourceInstanceID != graph.InstanceID(f.project, f.personID, "Person") {
		t.Fatalf("edge source %s does not address the person instance", edge.SourceInstanceID)
	}
	if edge.RelationType != "WORKS_FOR" {
		t.Fatalf("unexpected relation type %q", edge.RelationType)
	}
}

func TestMaterializeFailsWithoutActiveVersion(t *testing.T) {
	f := setup(t, &fakeVersions{active: nil}, &fakeStore{})
	f.runWithPayload(t, f.defaultPayload())

	if f.job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", f.job.Status)
	}
	if f.job.ErrorCode != domain.ErrCodeNoActiveOntology {
		t.Fatalf("expected no_active_ontology, got %q", f.job.ErrorCode)
	}
	if len(f.store.materialized) != 0 || f.store.synced {
		t.Fatal("nothing may touch the graph without an active version")
	}
}

func TestMaterializeRejectsUnknownClassBeforeWriting(t *testing.T) {
	f := setup(t, &fakeVersions{active: activeVersion()}, &fakeStore{})
	payload := f.defaultPayload()
	payload["mappings"].([]map[string]any)[0]["class_name"] = "Alien"
	f.runWithPayload(t, payload)

	if f.job.ErrorCode != domain.ErrCodeValidation {
		t.Fatalf("expected validation code, got %q (%s)", f.job.ErrorCode, f.job.Error)
	}
	if len(f.store.materialized) != 0 {
		t.Fatal("validation failure must precede all graph writes")
	}
}

func TestMaterializeRejectsMismatchedRelationEndpoints(t *testing.T) {
	f := setup(t, &fakeVersions{active: activeVersion()}, &fakeStore{})
	payload := f.defaultPayload()
	// WORKS_FOR is Person->Company; flip it.
	payload["relationships"] = []map[string]any{
		{"source_record_id": f.coID.String(), "target_record_id": f.personID.String(), "relation_type": "WORKS_FOR"},
	}
	f.runWithPayload(t, payload)

	if f.job.ErrorCode != domain.ErrCodeValidation {
		t.Fatalf("expected validation code, got %q (%s)", f.job.ErrorCode, f.job.Error)
	}
}

func TestMaterializeMidStreamFailureReportsCommitted(t *testing.T) {
	f := setup(t, &fakeVersions{active: activeVersion()}, &fakeStore{failAt: 2})
	f.runWithPayload(t, f.defaultPayload())

	if f.job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", f.job.Status)
	}
	var result map[string]any
	if err := json.Unmarshal(f.job.Result, &result); err != nil {
		t.Fatalf("decode partial result: %v", err)
	}
	if result["records_committed"] != float64(1) {
		t.Fatalf("expected 1 committed before failure, got %v", result["records_committed"])
	}
}
