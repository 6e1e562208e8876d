package clientable

import (
	"errors"
	"fmt"

	"github.com/fivetwenty-io/clientable/internal/constants"
)

// APIError is the failure reported by a remote service. It carries the
// service's own code, message and meta verbatim.
type APIError struct {
	Code    int                    `json:"code"    yaml:"code"`
	Message string                 `json:"msg"     yaml:"msg"`
	Meta    map[string]interface{} `json:"meta"    yaml:"meta"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service error (code: %d)", e.Code)
	}

	return fmt.Sprintf("%s (code: %d)", e.Message, e.Code)
}

// IsValidationError reports whether the service rejected the payload.
func (e *APIError) IsValidationError() bool {
	return e.Code == constants.HTTPStatusUnprocessableEntity
}

// IsServerError reports whether the service failed internally.
func (e *APIError) IsServerError() bool {
	return e.Code == constants.HTTPStatusInternalServerError
}

// Static errors for err113 compliance.
var (
	ErrUnsupportedOperation = errors.New("api not supported by version")
	ErrResourceRequired     = errors.New("resource name is required")
	ErrBaseURIRequired      = errors.New("base URI is required")
	ErrInvalidBaseURI       = errors.New("invalid base URI")
	ErrNegativeTimeout      = errors.New("timeouts must not be negative")
	ErrEmptyIDs             = errors.New("at least one id is required")
)

// IsValidationError checks if err is an APIError with the validation code.
func IsValidationError(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.IsValidationError()
	}

	return false
}

// IsServerError checks if err is an APIError with the server error code.
func IsServerError(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError()
	}

	return false
}

// IsUnsupportedOperation checks if err was raised by version gating.
func IsUnsupportedOperation(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}
