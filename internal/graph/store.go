// Package graph issues the logical graph operations against Neo4j: the
// ontology schema mirror, instance materialization, stats, reset, and guarded
// read queries. Every write is one session-scoped transaction per record,
// per edge batch, or per sync; no transaction ever spans an LLM call.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
	"github.com/ontomap/ontomap-backend/internal/platform/neo4jdb"
)

// Store is the graph surface the pipelines depend on; tests swap in fakes.
type Store interface {
	SyncOntology(ctx context.Context, version *domain.OntologyVersion, schema domain.OntologySchema) error
	MaterializeRecord(ctx context.Context, in MaterializeRecordInput) error
	ApplyRelationships(ctx context.Context, relationships []RelationshipWrite) error
	Stats(ctx context.Context, projectID uuid.UUID) (Stats, error)
	ResetProject(ctx context.Context, projectID uuid.UUID) error
	RunReadQuery(ctx context.Context, cypher string, params map[string]any, rowLimit int) ([]map[string]any, error)
}

type InstanceWrite struct {
	ID             uuid.UUID
	ClassName      string
	SourceRecordID uuid.UUID
	Properties     map[string]any
}

type RelationshipWrite struct {
	SourceInstanceID uuid.UUID
	TargetInstanceID uuid.UUID
	RelationType     string
}

// MaterializeRecordInput is one record's atomic graph write: the instance
// node and its INSTANCE_OF link. Relationship edges are applied separately
// once every endpoint node exists (see ApplyRelationships).
type MaterializeRecordInput struct {
	ProjectID uuid.UUID
	VersionID uuid.UUID
	Instance  InstanceWrite
}

type Stats struct {
	NodeCount         int64            `json:"node_count"`
	RelationshipCount int64            `json:"relationship_count"`
	InstancesByClass  map[string]int64 `json:"instances_by_class"`
}

type neo4jStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewStore(client *neo4jdb.Client, baseLog *logger.Logger) Store {
	return &neo4jStore{
		client: client,
		log:    baseLog.With("store", "GraphStore"),
	}
}

func (s *neo4jStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

func (s *neo4jStore) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
}

func (s *neo4jStore) ensureReady(ctx context.Context) error {
	if s == nil || s.client == nil || s.client.Driver == nil {
		return fmt.Errorf("graph: neo4j client not configured")
	}
	if ctx == nil {
		return fmt.Errorf("graph: nil context")
	}
	return nil
}

// SyncOntology mirrors an accepted schema snapshot into the graph so
// instances can link INSTANCE_OF to their class definitions. Idempotent by
// MERGE on (version id, class name).
func (s *neo4jStore) SyncOntology(ctx context.Context, version *domain.OntologyVersion, schema domain.OntologySchema) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	classes := make([]map[string]any, 0, len(schema.Classes))
	for _, c := range schema.Classes {
		classes = append(classes, map[string]any{
			"name":        c.Name,
			"description": c.Description,
			"version_id":  version.ID.String(),
			"synced_at":   now,
		})
	}
	rels := make([]map[string]any, 0, len(schema.RelationTypes))
	for _, r := range schema.RelationTypes {
		rels = append(rels, map[string]any{
			"name":         r.Name,
			"source_class": r.SourceClass,
			"target_class": r.TargetClass,
			"cardinality":  r.Cardinality,
			"version_id":   version.ID.String(),
			"synced_at":    now,
		})
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	// Schema helpers are best-effort; restricted users may not hold the
	// privilege and the MERGEs below stay correct without them.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT instance_id_unique IF NOT EXISTS FOR (i:Instance) REQUIRE i.id IS UNIQUE`, nil); err != nil {
		s.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}
	if res, err := session.Run(ctx, `CREATE INDEX instance_project_idx IF NOT EXISTS FOR (i:Instance) ON (i.project_id, i.class_name)`, nil); err != nil {
		s.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (v:OntologyVersion {id: $version_id})
SET v.project_id = $project_id,
    v.sequence_number = $sequence,
    v.synced_at = $synced_at
`, map[string]any{
			"version_id": version.ID.String(),
			"project_id": version.ProjectID.String(),
			"sequence":   int64(version.SequenceNumber),
			"synced_at":  now,
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(classes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $classes AS c
MATCH (v:OntologyVersion {id: c.version_id})
MERGE (oc:OntologyClass {version_id: c.version_id, name: c.name})
SET oc.description = c.description,
    oc.synced_at = c.synced_at
MERGE (v)-[:DEFINES]->(oc)
`, map[string]any{"classes": classes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(rels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (v:OntologyVersion {id: r.version_id})
MERGE (rt:OntologyRelationType {version_id: r.version_id, name: r.name})
SET rt.source_class = r.source_class,
    rt.target_class = r.target_class,
    rt.cardinality = r.cardinality,
    rt.synced_at = r.synced_at
MERGE (v)-[:DEFINES]->(rt)
`, map[string]any{"rels": rels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// MaterializeRecord applies one record's instance node in a single
// transaction. MERGE on the deterministic instance id makes re-runs upserts.
func (s *neo4jStore) MaterializeRecord(ctx context.Context, in MaterializeRecordInput) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if in.Instance.ID == uuid.Nil {
		return fmt.Errorf("graph: missing instance id")
	}

	props := make(map[string]any, len(in.Instance.Properties))
	for k, v := range in.Instance.Properties {
		props[k] = v
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (i:Instance {id: $id})
SET i += $props,
    i.project_id = $project_id,
    i.class_name = $class_name,
    i.source_record_id = $source_record_id,
    i.version_id = $version_id
WITH i
OPTIONAL MATCH (oc:OntologyClass {version_id: $version_id, name: $class_name})
FOREACH (_ IN CASE WHEN oc IS NULL THEN [] ELSE [1] END |
  MERGE (i)-[:INSTANCE_OF]->(oc)
)
`, map[string]any{
			"id":               in.Instance.ID.String(),
			"props":            props,
			"project_id":       in.ProjectID.String(),
			"class_name":       in.Instance.ClassName,
			"source_record_id": in.Instance.SourceRecordID.String(),
			"version_id":       in.VersionID.String(),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// ApplyRelationships merges RELATED edges in one transaction. Callers must
// have materialized every endpoint node first: the MATCH on either side of
// the MERGE yields zero rows for a missing node and the edge would be
// silently skipped.
func (s *neo4jStore) ApplyRelationships(ctx context.Context, relationships []RelationshipWrite) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if len(relationships) == 0 {
		return nil
	}

	edges := make([]map[string]any, 0, len(relationships))
	for _, r := range relationships {
		edges = append(edges, map[string]any{
			"source_id": r.SourceInstanceID.String(),
			"target_id": r.TargetInstanceID.String(),
			"type":      r.RelationType,
		})
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $edges AS e
MATCH (a:Instance {id: e.source_id})
MATCH (b:Instance {id: e.target_id})
MERGE (a)-[r:RELATED {type: e.type}]->(b)
`, map[string]any{"edges": edges})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jStore) Stats(ctx context.Context, projectID uuid.UUID) (Stats, error) {
	out := Stats{InstancesByClass: map[string]int64{}}
	if err := s.ensureReady(ctx); err != nil {
		return out, err
	}

	session := s.readSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (i:Instance {project_id: $project_id})
RETURN i.class_name AS class_name, count(i) AS instance_count
`, map[string]any{"project_id": projectID.String()})
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			rec := res.Record()
			name, _ := rec.Get("class_name")
			count, _ := rec.Get("instance_count")
			className, _ := name.(string)
			n, _ := count.(int64)
			out.InstancesByClass[className] = n
			out.NodeCount += n
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, `
MATCH (:Instance {project_id: $project_id})-[r:RELATED]->(:Instance)
RETURN count(r) AS rel_count
`, map[string]any{"project_id": projectID.String()})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			if v, ok := res.Record().Get("rel_count"); ok {
				out.RelationshipCount, _ = v.(int64)
			}
		}
		return nil, res.Err()
	})
	return out, err
}

// ResetProject removes all materialized instances for a project. This is the
// only sanctioned instance deletion.
func (s *neo4jStore) ResetProject(ctx context.Context, projectID uuid.UUID) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (i:Instance {project_id: $project_id})
DETACH DELETE i
`, map[string]any{"project_id": projectID.String()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// RunReadQuery executes an already-guarded statement in a read session with
// bound parameters and caps the returned rows.
func (s *neo4jStore) RunReadQuery(ctx context.Context, cypher string, params map[string]any, rowLimit int) ([]map[string]any, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	if rowLimit <= 0 {
		rowLimit = 100
	}

	session := s.readSession(ctx)
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var out []map[string]any
		for res.Next(ctx) {
			if len(out) >= rowLimit {
				break
			}
			out = append(out, res.Record().AsMap())
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	result, _ := rows.([]map[string]any)
	return result, nil
}
