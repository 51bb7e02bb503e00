package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ontomap/ontomap-backend/internal/services"
)

type SourcesHandler struct {
	sources services.SourceService
}

func NewSourcesHandler(sources services.SourceService) *SourcesHandler {
	return &SourcesHandler{sources: sources}
}

type ingestRequest struct {
	Name    string                 `json:"name"`
	Type    string                 `json:"type"`
	Records []services.RecordInput `json:"records"`
}

// POST /api/projects/:id/sources
func (h *SourcesHandler) Ingest(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	source, err := h.sources.IngestRecords(c.Request.Context(), services.IngestInput{
		ProjectID:  projectID,
		SourceName: req.Name,
		SourceType: req.Type,
		Records:    req.Records,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"source": source})
}

// GET /api/projects/:id/sources
func (h *SourcesHandler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	sources, err := h.sources.ListSources(c.Request.Context(), projectID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"sources": sources})
}

// GET /api/projects/:id/records
func (h *SourcesHandler) ListRecords(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	records, total, err := h.sources.ListRecords(c.Request.Context(), projectID, offset, limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"records": records,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}
