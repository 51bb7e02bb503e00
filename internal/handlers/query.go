package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/services"
)

type QueryHandler struct {
	jobs services.JobService
}

func NewQueryHandler(jobs services.JobService) *QueryHandler {
	return &QueryHandler{jobs: jobs}
}

type queryRequest struct {
	Question string `json:"question"`
}

// POST /api/projects/:id/query
func (h *QueryHandler) SubmitQuery(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		RespondError(c, http.StatusBadRequest, "missing_question", domain.NewValidationError("question is required"))
		return
	}
	job, err := h.jobs.Submit(c.Request.Context(), projectID, domain.JobKindQuery, map[string]any{
		"question": req.Question,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"job": job})
}
