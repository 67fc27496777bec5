package mcp

import (
	"errors"
	"fmt"

	"github.com/rpenna/planweave/internal/domain/generate"
	"github.com/rpenna/planweave/internal/domain/plan"
	"github.com/rpenna/planweave/internal/repository"
	"github.com/rpenna/planweave/internal/syncer"
)

// ErrProjectNotFound indicates the requested project document does not exist.
var ErrProjectNotFound = errors.New("project not found")

// APIError is a tool-facing error with a stable code and recovery hint.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to stable API error codes. Unknown errors
// return nil so the caller can pass them through unchanged.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrProjectNotFound), errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Check the project id or call list_projects"}
	case errors.Is(err, plan.ErrPhaseNotFound):
		return &APIError{Code: "PHASE_NOT_FOUND", Message: "phase not found", RecoveryHint: "Call get_project to see current phase ids"}
	case errors.Is(err, plan.ErrTaskNotFound):
		return &APIError{Code: "MICROTASK_NOT_FOUND", Message: "microtask not found", RecoveryHint: "Call get_project to see current microtask ids"}
	case errors.Is(err, plan.ErrInvalidInput), errors.Is(err, generate.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: "invalid input", RecoveryHint: "Check required fields"}
	case errors.Is(err, generate.ErrInvalidBreakdown):
		return &APIError{Code: "INVALID_BREAKDOWN", Message: "generated breakdown failed validation; nothing was applied", RecoveryHint: "Retry generate_breakdown"}
	case errors.Is(err, syncer.ErrClosed):
		return &APIError{Code: "PROJECT_CLOSED", Message: "project editor is closed", RecoveryHint: "Call get_project to reopen it"}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
