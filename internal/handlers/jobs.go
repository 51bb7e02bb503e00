package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/services"
)

type JobsHandler struct {
	jobs services.JobService
}

func NewJobsHandler(jobs services.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobsHandler) Get(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/projects/:id/jobs
func (h *JobsHandler) ListByProject(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	jobs, err := h.jobs.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs})
}

// POST /api/projects/:id/extract
func (h *JobsHandler) SubmitExtract(c *gin.Context) {
	h.submit(c, domain.JobKindExtract, nil)
}

func (h *JobsHandler) submit(c *gin.Context, kind string, payload map[string]any) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	job, err := h.jobs.Submit(c.Request.Context(), projectID, kind, payload)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"job": job})
}
