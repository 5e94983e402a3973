package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/funding"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/domain/submission"
	"github.com/rpggio/cairn/internal/repository"
)

// errNoWallet is returned by tools that act for a wallet when none is bound.
var errNoWallet = errors.New("no wallet bound to this connection")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, errNoWallet):
		return &APIError{Code: "NO_WALLET", Message: "no wallet bound", RecoveryHint: "Authenticate with an API key or configure session.default_wallet"}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call reconcile, then list_projects"}
	case errors.Is(err, project.ErrProofNotFound):
		return &APIError{Code: "PROOF_NOT_FOUND", Message: "reproducibility not found", RecoveryHint: "Check proof_id against get_project"}
	case errors.Is(err, session.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Start a new session"}
	case errors.Is(err, session.ErrSessionClosed):
		return &APIError{Code: "SESSION_CLOSED", Message: "session already closed", RecoveryHint: "Start a new session"}
	case errors.Is(err, submission.ErrNotOwner):
		return &APIError{Code: "NOT_OWNER", Message: "wallet does not own this project"}
	case errors.Is(err, submission.ErrInvalidState):
		return &APIError{Code: "INVALID_STATE", Message: err.Error(), RecoveryHint: "Only Waiting proofs can be disputed"}
	case errors.Is(err, repository.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, repository.ErrMalformed):
		return &APIError{Code: "MALFORMED_DOCUMENT", Message: err.Error(), RecoveryHint: "Fix the stored document and submit its new address"}
	case errors.Is(err, repository.ErrWriteRejected):
		return &APIError{Code: "WRITE_REJECTED", Message: err.Error(), RecoveryHint: "Check balances and approvals, then retry"}
	case errors.Is(err, repository.ErrUnreachable):
		return &APIError{Code: "UNREACHABLE", Message: err.Error(), RecoveryHint: "Retry later"}
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, funding.ErrInvalidInput),
		errors.Is(err, submission.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}

// toolError converts err for a tool result, keeping unmapped errors as-is.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
