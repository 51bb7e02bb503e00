package record_extract

import (
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ontomap/ontomap-backend/internal/domain"
	jobrt "github.com/ontomap/ontomap-backend/internal/jobs/runtime"
	"github.com/ontomap/ontomap-backend/internal/llm"
)

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

	srcs, err := p.sources.ListByProject(jc.Ctx, nil, projectID)
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}

	total, err := p.records.CountByProject(jc.Ctx, nil, projectID)
	if err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}
	if total == 0 {
		jc.Fail(domain.ErrCodeValidation, fmt.Errorf("project %s has no canonical records to extract from", projectID))
		return nil
	}

	// Re-extraction replaces the previous primitive set wholesale, so stale
	// labels from older records never leak into proposals.
	if err := p.primitives.DeleteByProject(jc.Ctx, nil, projectID); err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}

	jc.Progress(0.05, fmt.Sprintf("Extracting primitives from %d records", total))

	jobID := jc.Job.ID
	var (
		mu        sync.Mutex
		collected []*domain.Primitive
		processed int64
	)

	g, gctx := errgroup.WithContext(jc.Ctx)
	g.SetLimit(p.parallelism)

	for offset := 0; int64(offset) < total; offset += p.batchSize {
		offset := offset
		g.Go(func() error {
			batch, err := p.records.ListByProject(gctx, nil, projectID, offset, p.batchSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				return nil
			}

			samples := make([]llm.RecordSample, 0, len(batch))
			for _, rec := range batch {
				var fields map[string]any
				if err := json.Unmarshal(rec.Fields, &fields); err != nil {
					return fmt.Errorf("record %s has malformed fields: %w", rec.ID, err)
				}
				samples = append(samples, llm.RecordSample{ID: rec.ID.String(), Fields: fields})
			}

			extracted, err := p.extractor.ExtractPrimitives(gctx, project.Domain, samples)
			if err != nil {
				return err
			}

			prims := make([]*domain.Primitive, 0, len(extracted))
			for _, e := range extracted {
				if e.Label == "" || !validPrimitiveKind(e.Kind) {
					continue
				}
				prims = append(prims, &domain.Primitive{
					ProjectID:       projectID,
					Kind:            e.Kind,
					Label:           e.Label,
					Evidence:        e.Evidence,
					Confidence:      e.Confidence,
					ExtractionJobID: &jobID,
				})
			}

			mu.Lock()
			collected = append(collected, prims...)
			processed += int64(len(batch))
			done := processed
			mu.Unlock()

			jc.Progress(0.05+0.85*float64(done)/float64(total),
				fmt.Sprintf("Processed %d/%d records", done, total))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		jc.Fail(domain.ErrCodeInternal, err)
		return nil
	}

	if len(collected) > 0 {
		if _, err := p.primitives.CreateBatch(jc.Ctx, nil, collected); err != nil {
			jc.Fail(domain.ErrCodeInternal, err)
			return nil
		}
	}

	p.log.Info("extraction finished",
		"project_id", projectID,
		"sources", len(srcs),
		"records", total,
		"primitives", len(collected))

	jc.Complete(map[string]any{
		"source_count":    len(srcs),
		"record_count":    total,
		"primitive_count": len(collected),
	})
	return nil
}

func validPrimitiveKind(kind string) bool {
	switch kind {
	case domain.PrimitiveKindEntity, domain.PrimitiveKindAttribute, domain.PrimitiveKindRelation:
		return true
	}
	return false
}
