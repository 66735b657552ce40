// Package errors defines the error taxonomy shared by every layer of the
// gBizINFO tool server and the client-facing payload those errors map to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrFormat        = fmt.Errorf("invalid format")
	ErrRange         = fmt.Errorf("out of range")
	ErrConsistency   = fmt.Errorf("inconsistent fields")
	ErrUnknownTool   = fmt.Errorf("unknown tool")
	ErrInvalidConfig = fmt.Errorf("invalid config")
)

// ValidationError reports a rejected argument before any upstream call is made.
// Kind is one of ErrFormat, ErrRange, ErrConsistency or ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
	Kind   error
}

// NewValidationError builds a ValidationError of the given kind.
func NewValidationError(kind error, field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Kind: kind}
}

// Required reports a missing required argument.
func Required(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: field + " is required", Kind: ErrInvalidInput}
}

func (v *ValidationError) Error() string {
	if v.Field == "" || v.Reason == v.Field+" is required" {
		return v.Reason
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// Unwrap exposes both the specific kind and ErrInvalidInput so callers can
// match either.
func (v *ValidationError) Unwrap() []error {
	if v.Kind == nil || v.Kind == ErrInvalidInput {
		return []error{ErrInvalidInput}
	}
	return []error{v.Kind, ErrInvalidInput}
}

// APIError is a non-2xx answer from the upstream registry.
type APIError struct {
	StatusCode int
	Message    string
	ID         string
	Details    any
}

func (a *APIError) Error() string {
	return a.Message
}

// CommunicationError wraps any failure that happened while talking to the
// upstream registry. The wrapped error stays reachable, so an *APIError keeps
// its status, id and details through the rewrap.
type CommunicationError struct {
	Op  string
	Err error
}

func (c *CommunicationError) Error() string {
	if c.Op == "" {
		return fmt.Sprintf("gbizinfo communication failed: %v", c.Err)
	}
	return fmt.Sprintf("gbizinfo communication failed: %s: %v", c.Op, c.Err)
}

func (c *CommunicationError) Unwrap() error { return c.Err }

// Payload is the structured body every failure is reported as.
type Payload struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// FieldError is the detail entry attached to validation payloads.
type FieldError struct {
	Item    string `json:"item"`
	Message string `json:"message"`
}

// ToPayload converts err into the client-facing payload.
func ToPayload(err error) Payload {
	if err == nil {
		return Payload{}
	}

	var v *ValidationError
	if errors.As(err, &v) {
		p := Payload{Message: v.Error()}
		if v.Field != "" {
			p.Errors = []FieldError{{Item: v.Field, Message: v.Reason}}
		}
		return p
	}

	var api *APIError
	if errors.As(err, &api) {
		return Payload{Message: api.Message, ID: api.ID, Errors: api.Details}
	}

	return Payload{Message: err.Error()}
}

// HTTPStatus maps err to the status code a route should answer with.
func HTTPStatus(err error) int {
	var api *APIError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownTool):
		return http.StatusNotFound
	case errors.As(err, &api) && api.StatusCode >= 400 && api.StatusCode < 500:
		return api.StatusCode
	default:
		return http.StatusBadGateway
	}
}
