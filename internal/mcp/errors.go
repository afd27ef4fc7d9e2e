package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/leadboard/internal/crm"
	"github.com/rpggio/leadboard/internal/domain/activity"
	"github.com/rpggio/leadboard/internal/domain/calendar"
	"github.com/rpggio/leadboard/internal/domain/lead"
	"github.com/rpggio/leadboard/internal/domain/role"
	"github.com/rpggio/leadboard/internal/transport"
)

var (
	// ErrUnknownMethod is returned for a method the handler does not serve.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInvalidParams is returned when params do not decode.
	ErrInvalidParams = errors.New("invalid params")
)

// APIError represents an RPC error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`

	rpcCode int
	cause   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// JSONRPCCode is the numeric code used on the wire.
func (e *APIError) JSONRPCCode() int {
	if e.rpcCode == 0 {
		return transport.ErrServer
	}
	return e.rpcCode
}

// MapError maps domain errors to RPC error codes. It returns nil for
// errors with no stable mapping.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	mapped := func(code string, rpcCode int, hint string) *APIError {
		return &APIError{Code: code, Message: err.Error(), RecoveryHint: hint, rpcCode: rpcCode, cause: err}
	}

	switch {
	case errors.Is(err, ErrUnknownMethod):
		return mapped("METHOD_NOT_FOUND", transport.ErrMethodNotFound, "Check the method name")
	case errors.Is(err, ErrInvalidParams):
		return mapped("INVALID_PARAMS", transport.ErrInvalidParams, "Check parameter names and types")
	case errors.Is(err, lead.ErrInvalidStage):
		return mapped("INVALID_STAGE", transport.ErrInvalidParams, "Use a stage from pipeline.snapshot")
	case errors.Is(err, lead.ErrNotInStage):
		return mapped("NOT_IN_STAGE", transport.ErrConflict, "Reload the pipeline and retry")
	case errors.Is(err, lead.ErrInvalidInput),
		errors.Is(err, calendar.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput):
		return mapped("INVALID_INPUT", transport.ErrInvalidParams, "Fix the highlighted field")
	case errors.Is(err, role.ErrUnknownRole):
		return mapped("UNKNOWN_ROLE", transport.ErrInvalidParams, "Use an id from role.list")
	case errors.Is(err, calendar.ErrNotFound):
		return mapped("NOT_FOUND", transport.ErrNotFound, "Check ID spelling")
	case errors.Is(err, lead.ErrRemote):
		e := mapped("REMOTE_ERROR", transport.ErrRemote, "Local changes were reverted; retry manually")
		var crmErr *crm.APIError
		if errors.As(err, &crmErr) {
			e.Details = map[string]int{"status": crmErr.StatusCode}
			if !crmErr.Transient() {
				e.RecoveryHint = "The CRM rejected the request; fix the input before retrying"
			}
		}
		return e
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
