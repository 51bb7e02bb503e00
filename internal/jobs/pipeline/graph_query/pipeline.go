package graph_query

import (
	"fmt"
	"strings"

	"github.com/ontomap/ontomap-backend/internal/domain"
	jobrt "github.com/ontomap/ontomap-backend/internal/jobs/runtime"
	"github.com/ontomap/ontomap-backend/internal/ontology"
	"github.com/ontomap/ontomap-backend/internal/query"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	projectID := jc.Job.ProjectID

	question := strings.TrimSpace(jc.PayloadString("question"))
	if question == "" {
		jc.Fail(domain.ErrCodeValidation, fmt.Errorf("query payload has no question"))
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

	jc.Progress(0.2, "Translating question to Cypher")
	translation, err := p.translator.Translate(jc.Ctx, question, ontology.ContextOf(schema))
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}

	// Guard before anything touches the graph; the read-mode session is the
	// second line of defense, not the first.
	if err := query.EnsureReadOnly(translation.Cypher); err != nil {
		jc.Fail(domain.ErrCodeUnsafeQuery, err)
		return nil
	}

	jc.Progress(0.6, "Executing query")
	params := map[string]any{"project_id": projectID.String()}
	rows, err := p.graph.RunReadQuery(jc.Ctx, translation.Cypher, params, p.rowLimit)
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, fmt.Errorf("query execution: %w", err))
		return nil
	}

	p.log.Info("query answered",
		"project_id", projectID,
		"version_id", version.ID,
		"rows", len(rows),
		"confidence", translation.Confidence)

	jc.Complete(map[string]any{
		"version_id":   version.ID.String(),
		"cypher_query": translation.Cypher,
		"explanation":  translation.Explanation,
		"confidence":   translation.Confidence,
		"warnings":     translation.Warnings,
		"row_count":    len(rows),
		"rows":         rows,
	})
	return nil
}
