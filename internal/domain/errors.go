package domain

import (
	"errors"
	"fmt"
)

// Error codes persisted on failed job rows so pollers can tell failure
// classes apart without parsing messages.
const (
	ErrCodeTimeout            = "timeout"
	ErrCodeProposalValidation = "proposal_validation"
	ErrCodeUnsafeQuery        = "unsafe_query"
	ErrCodeNoActiveOntology   = "no_active_ontology"
	ErrCodeValidation         = "validation"
	ErrCodeInternal           = "internal"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

type NoActiveOntologyError struct {
	ProjectID string
}

func (e *NoActiveOntologyError) Error() string {
	return fmt.Sprintf("project %s has no active ontology version", e.ProjectID)
}

type ProposalValidationError struct {
	Attempts int
	Last     error
}

func (e *ProposalValidationError) Error() string {
	return fmt.Sprintf("proposal output invalid after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ProposalValidationError) Unwrap() error { return e.Last }

type UnsafeQueryError struct {
	Clause string
}

func (e *UnsafeQueryError) Error() string {
	return fmt.Sprintf("query contains mutating clause %q", e.Clause)
}

func NewUnsafeQueryError(clause string) *UnsafeQueryError {
	return &UnsafeQueryError{Clause: clause}
}

type TimeoutError struct {
	Kind     string
	Deadline string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s job exceeded deadline %s", e.Kind, e.Deadline)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
