package ontology_propose

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ontomap/ontomap-backend/internal/domain"
	jobrt "github.com/ontomap/ontomap-backend/internal/jobs/runtime"
	"github.com/ontomap/ontomap-backend/internal/llm"
	"github.com/ontomap/ontomap-backend/internal/ontology"
	"github.com/ontomap/ontomap-backend/internal/services"
)

const maxPrimitiveSamples = 200

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	projectID := jc.Job.ProjectID
	project, err := p.projects.GetByID(jc.Ctx, nil, projectID)
	if err != nil {
		jc.Fail(domain.ErrCodeValidation, err)
		return nil
	}

	feedback := jc.PayloadString("feedback")
	var prior *llm.PriorIteration
	var parentID *uuid.UUID

	// An explicit parent in the payload pins the iteration base; otherwise
	// the current active version (if any) is the base.
	parent, ok := jc.PayloadUUID("parent_version_id")
	var parentVersion *domain.OntologyVersion
	if ok {
		parentVersion, err = p.versions.GetByID(jc.Ctx, nil, parent)
		if err != nil {
			jc.Fail(domain.ErrCodeValidation, err)
			return nil
		}
		if parentVersion.ProjectID != projectID {
			jc.Fail(domain.ErrCodeValidation, fmt.Errorf("parent version %s belongs to a different project", parent))
			return nil
		}
	} else {
		parentVersion, err = p.versions.GetActive(jc.Ctx, nil, projectID)
		if err != nil {
			jc.Fail(domain.ErrCodeInternal, err)
			return nil
		}
	}
	if parentVersion != nil {
		schema, sErr := parentVersion.Schema()
		if sErr != nil {
			jc.Fail(domain.ErrCodeInternal, sErr)
			return nil
		}
		prior = &llm.PriorIteration{Schema: schema, Feedback: feedback}
		pid := parentVersion.ID
		parentID = &pid
	}

	jc.Progress(0.1, "Sampling records and primitives")

	sampled, err := p.records.SampleByProject(jc.Ctx, nil, projectID, p.sampleSize)
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}
	if len(sampled) == 0 {
		jc.Fail(domain.ErrCodeValidation, fmt.Errorf("project %s has no canonical records to propose from", projectID))
		return nil
	}
	samples := make([]llm.RecordSample, 0, len(sampled))
	for _, rec := range sampled {
		var fields map[string]any
		if err := json.Unmarshal(rec.Fields, &fields); err != nil {
			continue
		}
		samples = append(samples, llm.RecordSample{ID: rec.ID.String(), Fields: fields})
	}

	prims, err := p.primitives.ListByProject(jc.Ctx, nil, projectID)
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}
	primSamples := make([]llm.PrimitiveSample, 0, len(prims))
	for _, pr := range prims {
		if len(primSamples) >= maxPrimitiveSamples {
			break
		}
		primSamples = append(primSamples, llm.PrimitiveSample{
			Kind:     pr.Kind,
			Label:    pr.Label,
			Evidence: pr.Evidence,
		})
	}

	req := llm.ProposalRequest{
		DomainDescription: project.Domain,
		Samples:           samples,
		Primitives:        primSamples,
		Prior:             prior,
	}

	// Retry budget covers malformed or structurally invalid model output.
	// Any attempt that fails validation is never persisted.
	attempts := 0
	var lastErr error
	var created *domain.OntologyVersion
	for attempts <= p.retries {
		attempts++
		jc.Progress(0.3, fmt.Sprintf("Requesting ontology proposal (attempt %d)", attempts))

		proposal, pErr := p.provider.ProposeOntology(jc.Ctx, req)
		if pErr != nil {
			lastErr = pErr
			continue
		}

		schema := domain.OntologySchema{
			Classes:       proposal.Classes,
			RelationTypes: proposal.RelationTypes,
		}
		if vErr := ontology.Validate(schema); vErr != nil {
			lastErr = vErr
			p.log.Warn("proposal failed validation", "project_id", projectID, "attempt", attempts, "error", vErr)
			continue
		}

		jc.Progress(0.7, "Persisting proposed version")
		created, err = p.ontology.Propose(jc.Ctx, services.ProposeInput{
			ProjectID:       projectID,
			Schema:          schema,
			ParentVersionID: parentID,
			FeedbackApplied: feedback,
		})
		if err != nil {
			jc.Fail(domain.ErrCodeInternal, err)
			return nil
		}
		break
	}

	if created == nil {
		jc.Fail(domain.ErrCodeProposalValidation, &domain.ProposalValidationError{
			Attempts: attempts,
			Last:     lastErr,
		})
		return nil
	}

	if project.Status == domain.ProjectStatusDraft {
		if err := p.projects.UpdateStatus(jc.Ctx, nil, projectID, domain.ProjectStatusBuilding); err != nil {
			p.log.Warn("project status update failed", "project_id", projectID, "error", err)
		}
	}

	schema, _ := created.Schema()
	jc.Complete(map[string]any{
		"version_id":      created.ID.String(),
		"sequence_number": created.SequenceNumber,
		"class_count":     len(schema.Classes),
		"relation_count":  len(schema.RelationTypes),
	})
	return nil
}
