package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/graph"
	"github.com/ontomap/ontomap-backend/internal/services"
)

type MaterializationHandler struct {
	jobs     services.JobService
	projects services.ProjectService
	graph    graph.Store
}

func NewMaterializationHandler(jobs services.JobService, projects services.ProjectService, graphStore graph.Store) *MaterializationHandler {
	return &MaterializationHandler{jobs: jobs, projects: projects, graph: graphStore}
}

// POST /api/projects/:id/materialize
// The body is passed through as the job payload; the worker validates the
// mapping against the active ontology version.
func (h *MaterializationHandler) SubmitMaterialize(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	job, err := h.jobs.Submit(c.Request.Context(), projectID, domain.JobKindMaterialize, payload)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"job": job})
}

// GET /api/projects/:id/graph/stats
func (h *MaterializationHandler) GraphStats(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	if _, err := h.projects.Get(c.Request.Context(), projectID); err != nil {
		RespondDomainError(c, err)
		return
	}
	stats, err := h.graph.Stats(c.Request.Context(), projectID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

// DELETE /api/projects/:id/graph
func (h *MaterializationHandler) ResetGraph(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	if _, err := h.projects.Get(c.Request.Context(), projectID); err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := h.graph.ResetProject(c.Request.Context(), projectID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"reset": true})
}
