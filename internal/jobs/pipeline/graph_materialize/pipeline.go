package graph_materialize

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/graph"
	jobrt "github.com/ontomap/ontomap-backend/internal/jobs/runtime"
	"github.com/ontomap/ontomap-backend/internal/observability"
)

type recordMapping struct {
	SourceRecordID uuid.UUID         `json:"source_record_id"`
	ClassName      string            `json:"class_name"`
	PropertyMap    map[string]string `json:"property_map"`
}

type relationshipMapping struct {
	SourceRecordID uuid.UUID `json:"source_record_id"`
	TargetRecordID uuid.UUID `json:"target_record_id"`
	RelationType   string    `json:"relation_type"`
}

type payload struct {
	Mappings      []recordMapping       `json:"mappings"`
	Relationships []relationshipMapping `json:"relationships"`
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	projectID := jc.Job.ProjectID

	var in payload
	raw, _ := json.Marshal(jc.Payload())
	if err := json.Unmarshal(raw, &in); err != nil {
		jc.Fail(domain.ErrCodeValidation, fmt.Errorf("malformed materialization payload: %w", err))
		return nil
	}
	if len(in.Mappings) == 0 {
		jc.Fail(domain.ErrCodeValidation, fmt.Errorf("materialization payload has no record mappings"))
		return nil
	}

	version, err := p.versions.GetActive(jc.Ctx, nil, projectID)
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}
	if version == nil {
		jc.Fail(domain.ErrCodeNoActiveOntology, &domain.NoActiveOntologyError{ProjectID: projectID.String()})
		return nil
	}
	schema, err := version.Schema()
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}

	// Every mapped name must exist in the active version before any graph
	// write happens; a partial materialization against a bad mapping would
	// be worse than failing fast.
	classOfRecord := make(map[uuid.UUID]string, len(in.Mappings))
	for i, m := range in.Mappings {
		if m.SourceRecordID == uuid.Nil {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("mapping %d has no source_record_id", i))
			return nil
		}
		if _, ok := schema.ClassByName(m.ClassName); !ok {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("class %q is not defined in the active ontology version", m.ClassName))
			return nil
		}
		if prev, dup := classOfRecord[m.SourceRecordID]; dup && prev != m.ClassName {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("record %s is mapped to both %q and %q", m.SourceRecordID, prev, m.ClassName))
			return nil
		}
		classOfRecord[m.SourceRecordID] = m.ClassName
	}

	edges := make([]graph.RelationshipWrite, 0, len(in.Relationships))
	for i, r := range in.Relationships {
		rel, ok := schema.RelationByName(r.RelationType)
		if !ok {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("relation type %q is not defined in the active ontology version", r.RelationType))
			return nil
		}
		srcClass, ok := classOfRecord[r.SourceRecordID]
		if !ok {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("relationship %d references unmapped source record %s", i, r.SourceRecordID))
			return nil
		}
		tgtClass, ok := classOfRecord[r.TargetRecordID]
		if !ok {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("relationship %d references unmapped target record %s", i, r.TargetRecordID))
			return nil
		}
		if srcClass != rel.SourceClass || tgtClass != rel.TargetClass {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf(
				"relation %q connects %s->%s, got %s->%s", r.RelationType,
				rel.SourceClass, rel.TargetClass, srcClass, tgtClass))
			return nil
		}
		edges = append(edges, graph.RelationshipWrite{
			SourceInstanceID: graph.InstanceID(projectID, r.SourceRecordID, srcClass),
			TargetInstanceID: graph.InstanceID(projectID, r.TargetRecordID, tgtClass),
			RelationType:     r.RelationType,
		})
	}

	recordIDs := make([]uuid.UUID, 0, len(classOfRecord))
	for id := range classOfRecord {
		recordIDs = append(recordIDs, id)
	}
	records, err := p.records.GetByIDs(jc.Ctx, nil, recordIDs)
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}
	recordByID := make(map[uuid.UUID]map[string]any, len(records))
	for _, rec := range records {
		if rec.ProjectID != projectID {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("record %s belongs to a different project", rec.ID))
			return nil
		}
		var fields map[string]any
		if err := json.Unmarshal(rec.Fields, &fields); err != nil {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("record %s has malformed fields: %w", rec.ID, err))
			return nil
		}
		recordByID[rec.ID] = fields
	}
	for _, m := range in.Mappings {
		if _, ok := recordByID[m.SourceRecordID]; !ok {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("record %s not found", m.SourceRecordID))
			return nil
		}
	}

	jc.Progress(0.05, "Syncing ontology schema to graph")
	if err := p.graph.SyncOntology(jc.Ctx, version, schema); err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}

	// Phase one writes every instance node; edges only go in once all of
	// their endpoints exist, otherwise the edge MERGE would match nothing
	// for a target mapped later in the payload and silently drop the edge.
	total := len(in.Mappings)
	committed := 0
	for _, m := range in.Mappings {
		fields := recordByID[m.SourceRecordID]
		props := make(map[string]any, len(m.PropertyMap))
		for recordField, propName := range m.PropertyMap {
			if v, ok := fields[recordField]; ok && propName != "" {
				props[propName] = flattenProperty(v)
			}
		}

		err := p.graph.MaterializeRecord(jc.Ctx, graph.MaterializeRecordInput{
			ProjectID: projectID,
			VersionID: version.ID,
			Instance: graph.InstanceWrite{
				ID:             graph.InstanceID(projectID, m.SourceRecordID, m.ClassName),
				ClassName:      m.ClassName,
				SourceRecordID: m.SourceRecordID,
				Properties:     props,
			},
		})
		if err != nil {
			// Whole-record atomicity: everything before this record is
			// committed and stays; the partial result says how far we got.
			observability.RecordsMaterialized(committed)
			jc.FailWithResult(domain.ErrCodeInternal,
				fmt.Errorf("materialize record %s: %w", m.SourceRecordID, err),
				map[string]any{
					"records_committed": committed,
					"records_total":     total,
				})
			return nil
		}
		committed++
		if committed%25 == 0 || committed == total {
			jc.Progress(0.05+0.8*float64(committed)/float64(total),
				fmt.Sprintf("Materialized %d/%d records", committed, total))
		}
	}

	if len(edges) > 0 {
		jc.Progress(0.9, fmt.Sprintf("Applying %d relationships", len(edges)))
		if err := p.graph.ApplyRelationships(jc.Ctx, edges); err != nil {
			observability.RecordsMaterialized(committed)
			jc.FailWithResult(domain.ErrCodeInternal,
				fmt.Errorf("apply relationships: %w", err),
				map[string]any{
					"records_committed":  committed,
					"records_total":      total,
					"relationship_count": 0,
				})
			return nil
		}
	}

	observability.RecordsMaterialized(committed)
	if err := p.projects.UpdateStatus(jc.Ctx, nil, projectID, domain.ProjectStatusComplete); err != nil {
		p.log.Warn("project status update failed", "project_id", projectID, "error", err)
	}

	p.log.Info("materialization finished",
		"project_id", projectID,
		"version_id", version.ID,
		"records", committed,
		"relationships", len(edges))

	jc.Complete(map[string]any{
		"version_id":         version.ID.String(),
		"records_committed":  committed,
		"relationship_count": len(edges),
	})
	return nil
}

// flattenProperty keeps Neo4j property values scalar: nested objects and
// arrays of objects are stored as JSON strings.
func flattenProperty(v any) any {
	switch v.(type) {
	case string, bool, float64, int, int64, nil:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
