package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ontomap/ontomap-backend/internal/domain"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}

// RespondDomainError maps the typed domain errors onto HTTP statuses:
// validation 422, conflict 409, not found 404, no active ontology 409,
// everything else 500.
func RespondDomainError(c *gin.Context, err error) {
	var noActive *domain.NoActiveOntologyError
	switch {
	case domain.IsValidation(err):
		RespondError(c, http.StatusUnprocessableEntity, domain.ErrCodeValidation, err)
	case domain.IsConflict(err):
		RespondError(c, http.StatusConflict, "conflict", err)
	case domain.IsNotFound(err):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.As(err, &noActive):
		RespondError(c, http.StatusConflict, domain.ErrCodeNoActiveOntology, err)
	default:
		RespondError(c, http.StatusInternalServerError, domain.ErrCodeInternal, err)
	}
}
