package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/services"
)

type OntologyHandler struct {
	ontology services.OntologyService
	jobs     services.JobService
}

func NewOntologyHandler(ontologySvc services.OntologyService, jobs services.JobService) *OntologyHandler {
	return &OntologyHandler{ontology: ontologySvc, jobs: jobs}
}

type proposeRequest struct {
	Feedback        string `json:"feedback,omitempty"`
	ParentVersionID string `json:"parent_version_id,omitempty"`
}

// POST /api/projects/:id/ontology/propose
func (h *OntologyHandler) SubmitPropose(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	var req proposeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	payload := map[string]any{}
	if req.Feedback != "" {
		payload["feedback"] = req.Feedback
	}
	if req.ParentVersionID != "" {
		parentID, pErr := uuid.Parse(req.ParentVersionID)
		if pErr != nil {
			RespondError(c, http.StatusBadRequest, "invalid_parent_version_id", pErr)
			return
		}
		payload["parent_version_id"] = parentID.String()
	}
	job, err := h.jobs.Submit(c.Request.Context(), projectID, domain.JobKindProposeOntology, payload)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"job": job})
}

// GET /api/projects/:id/ontology/versions
func (h *OntologyHandler) ListVersions(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	versions, err := h.ontology.ListVersions(c.Request.Context(), projectID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"versions": versions})
}

// GET /api/ontology/versions/:id
func (h *OntologyHandler) GetVersion(c *gin.Context) {
	versionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_version_id", err)
		return
	}
	version, err := h.ontology.GetByID(c.Request.Context(), versionID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

// POST /api/ontology/versions/:id/accept
func (h *OntologyHandler) Accept(c *gin.Context) {
	versionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_version_id", err)
		return
	}
	version, err := h.ontology.Accept(c.Request.Context(), versionID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

// GET /api/projects/:id/ontology/active
func (h *OntologyHandler) GetActive(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	version, err := h.ontology.GetActive(c.Request.Context(), projectID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

// GET /api/ontology/diff?from=&to=
func (h *OntologyHandler) Diff(c *gin.Context) {
	fromID, err := uuid.Parse(c.Query("from"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_from_version_id", err)
		return
	}
	toID, err := uuid.Parse(c.Query("to"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_to_version_id", err)
		return
	}
	diff, err := h.ontology.Diff(c.Request.Context(), fromID, toID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"diff": diff})
}
