package ontology

import (
	"reflect"

	"github.com/ontomap/ontomap-backend/internal/domain"
)

const (
	ChangeClassAdded       = "class_added"
	ChangeClassRemoved     = "class_removed"
	ChangeClassModified    = "class_modified"
	ChangeRelationAdded    = "relation_added"
	ChangeRelationRemoved  = "relation_removed"
	ChangeRelationModified = "relation_modified"
)

type Change struct {
	Type        string `json:"type"`
	ElementName string `json:"element_name"`
	Old         any    `json:"old,omitempty"`
	New         any    `json:"new,omitempty"`
}

type Diff struct {
	FromVersionID string   `json:"from_version_id"`
	ToVersionID   string   `json:"to_version_id"`
	Changes       []Change `json:"changes"`
}

func (d Diff) Empty() bool { return len(d.Changes) == 0 }

// ComputeDiff compares two schema snapshots by name-keyed lookup. A class is
// modified when its description or properties changed; a relation when its
// description-bearing fields (endpoints, cardinality) changed. Confidence and
// rationale are reviewer annotations and do not count as modifications.
func ComputeDiff(from, to domain.OntologySchema) Diff {
	var d Diff

	fromClasses := make(map[string]domain.OntologyClass, len(from.Classes))
	for _, c := range from.Classes {
		fromClasses[c.Name] = c
	}
	toClasses := make(map[string]domain.OntologyClass, len(to.Classes))
	for _, c := range to.Classes {
		toClasses[c.Name] = c
	}

	for _, c := range to.Classes {
		old, ok := fromClasses[c.Name]
		if !ok {
			d.Changes = append(d.Changes, Change{Type: ChangeClassAdded, ElementName: c.Name, New: c})
			continue
		}
		if classModified(old, c) {
			d.Changes = append(d.Changes, Change{Type: ChangeClassModified, ElementName: c.Name, Old: old, New: c})
		}
	}
	for _, c := range from.Classes {
		if _, ok := toClasses[c.Name]; !ok {
			d.Changes = append(d.Changes, Change{Type: ChangeClassRemoved, ElementName: c.Name, Old: c})
		}
	}

	fromRels := make(map[string]domain.OntologyRelationType, len(from.RelationTypes))
	for _, r := range from.RelationTypes {
		fromRels[r.Name] = r
	}
	toRels := make(map[string]domain.OntologyRelationType, len(to.RelationTypes))
	for _, r := range to.RelationTypes {
		toRels[r.Name] = r
	}

	for _, r := range to.RelationTypes {
		old, ok := fromRels[r.Name]
		if !ok {
			d.Changes = append(d.Changes, Change{Type: ChangeRelationAdded, ElementName: r.Name, New: r})
			continue
		}
		if relationModified(old, r) {
			d.Changes = append(d.Changes, Change{Type: ChangeRelationModified, ElementName: r.Name, Old: old, New: r})
		}
	}
	for _, r := range from.RelationTypes {
		if _, ok := toRels[r.Name]; !ok {
			d.Changes = append(d.Changes, Change{Type: ChangeRelationRemoved, ElementName: r.Name, Old: r})
		}
	}

	return d
}

func classModified(old, new domain.OntologyClass) bool {
	if old.Description != new.Description {
		return true
	}
	return !reflect.DeepEqual(old.Properties, new.Properties)
}

func relationModified(old, new domain.OntologyRelationType) bool {
	return old.SourceClass != new.SourceClass ||
		old.TargetClass != new.TargetClass ||
		old.Cardinality != new.Cardinality
}
