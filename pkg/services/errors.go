// Package services provides the use cases behind the HTTP API.
package services

import (
	"errors"
	"fmt"
)

// Error codes carried by ServiceError and mapped to HTTP statuses by the web layer.
const (
	CodeValidation = "validation"
	CodeConflict   = "conflict"
	CodeNotFound   = "not_found"
)

// Client errors (4xx).
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidStatus  = errors.New("invalid workflow status")
	ErrEmptyOwnerID   = errors.New("owner ID cannot be empty")

	// Graph validation errors (400 Bad Request).
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrDuplicateNodeID      = errors.New("duplicate node id")
	ErrDanglingEdge         = errors.New("edge references an unknown node")
	ErrCycle                = errors.New("workflow graph contains a cycle")
	ErrUnknownNodeType      = errors.New("unknown node type")
	ErrInvalidNodeConfig    = errors.New("invalid node config")
	ErrTriggerNodeRequired  = errors.New("workflow must have at least one enabled trigger node")
	ErrInvalidTimeRange     = errors.New("invalid time range")
	ErrInvalidGranularity   = errors.New("invalid granularity")

	// Conflicts (409 Conflict).
	ErrWorkflowNotActive = errors.New("workflow is not active")
	ErrAlreadyActive     = errors.New("workflow is already active")

	// Lookups (404 Not Found).
	ErrNodeTypeNotFound = errors.New("node type not found")
)

// ServiceError wraps a service failure with the operation and an API code.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a 400-class error.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: CodeValidation, Message: message, Err: err}
}

// NewConflictError creates a 409-class error.
func NewConflictError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: CodeConflict, Message: message, Err: err}
}

// NewNotFoundError creates a 404-class error.
func NewNotFoundError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: CodeNotFound, Message: message, Err: err}
}

// CodeOf returns the ServiceError code carried by err, or "".
func CodeOf(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}

	return ""
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsConflictError checks if an error should return HTTP 409.
func IsConflictError(err error) bool {
	return CodeOf(err) == CodeConflict
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return CodeOf(err) == CodeNotFound
}
