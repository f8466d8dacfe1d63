package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrSubscriptionNotFound indicates no watch subscription matched the lookup.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrCursorConflict indicates the stored cursor moved since it was read.
	ErrCursorConflict = errors.New("cursor was advanced concurrently")

	// ErrSessionNotFound indicates an execution session was not found.
	ErrSessionNotFound = errors.New("execution session not found")

	// ErrStepNotFound indicates a completion arrived for a step that was never recorded.
	ErrStepNotFound = errors.New("execution step not found")

	// ErrWebhookNotFound indicates a webhook subscription was not found.
	ErrWebhookNotFound = errors.New("webhook not found")

	// ErrInvalidID indicates an identifier that cannot be stored safely.
	ErrInvalidID = errors.New("invalid identifier")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "ByID", "Save", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// SubscriptionError wraps cursor store errors.
type SubscriptionError struct {
	Op             string
	SubscriptionID string
	ChannelID      string
	Err            error
}

func (e *SubscriptionError) Error() string {
	target := e.SubscriptionID
	if target == "" {
		target = "channel " + e.ChannelID
	}

	return fmt.Sprintf("%s operation failed for subscription %s: %v", e.Op, target, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

func (e *SubscriptionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ExecutionError wraps execution history errors.
type ExecutionError struct {
	Op        string
	SessionID string
	NodeID    string
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s operation failed for node %s in session %s: %v", e.Op, e.NodeID, e.SessionID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsSubscriptionNotFound checks if an error indicates a subscription was not found.
func IsSubscriptionNotFound(err error) bool {
	return errors.Is(err, ErrSubscriptionNotFound)
}

// IsCursorConflict checks if an error indicates a lost cursor compare-and-swap.
func IsCursorConflict(err error) bool {
	return errors.Is(err, ErrCursorConflict)
}

// IsSessionNotFound checks if an error indicates an execution session was not found.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsWebhookNotFound checks if an error indicates a webhook was not found.
func IsWebhookNotFound(err error) bool {
	return errors.Is(err, ErrWebhookNotFound)
}
