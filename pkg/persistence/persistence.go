// Package persistence provides the storage abstraction for workflows, watch
// subscriptions, execution history and webhook subscriptions.
package persistence

import (
	"context"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
)

// Persistence groups every repository behind one backend.
type Persistence interface {
	Workflows() WorkflowRepository
	Subscriptions() SubscriptionRepository
	Executions() ExecutionRepository
	Webhooks() WebhookRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions filters and paginates workflow listings.
type ListWorkflowsOptions struct {
	OwnerID string
	Status  *models.WorkflowStatus
	Limit   int
	Offset  int
}

// WorkflowListResult is a page of workflows.
type WorkflowListResult struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
}

// WorkflowRepository stores workflow graphs and the trigger index derived from them.
type WorkflowRepository interface {
	List(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	// All returns every non-deleted workflow.
	All(ctx context.Context) ([]*models.Workflow, error)
	ByID(ctx context.Context, id string) (*models.Workflow, error)
	// Save upserts the workflow and replaces its trigger registrations.
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
	// ActiveTriggers returns registrations of active workflows owned by ownerID
	// for the given provider and trigger types.
	ActiveTriggers(ctx context.Context, provider models.Provider, ownerID string, triggerTypes []string) ([]models.TriggerRegistration, error)
}

// SubscriptionRepository is the cursor store.
type SubscriptionRepository interface {
	Save(ctx context.Context, subscription *models.WatchSubscription) error
	ByID(ctx context.Context, id string) (*models.WatchSubscription, error)
	ByChannel(ctx context.Context, channelID string) (*models.WatchSubscription, error)
	// CurrentForScope returns the authoritative subscription of a scope: the one
	// updated most recently.
	CurrentForScope(ctx context.Context, key models.ScopeKey) (*models.WatchSubscription, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.WatchSubscription, error)
	Delete(ctx context.Context, id string) error
	// AdvanceCursor replaces the cursor only when it still equals previous.
	// It returns ErrCursorConflict otherwise.
	AdvanceCursor(ctx context.Context, id, previous, next string) error
}

// ExecutionRepository stores sessions and their per-node history.
type ExecutionRepository interface {
	SaveSession(ctx context.Context, session *models.ExecutionSession) error
	SessionByID(ctx context.Context, id string) (*models.ExecutionSession, error)
	SessionsByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionSession, error)
	SessionsBetween(ctx context.Context, from, to time.Time) ([]*models.ExecutionSession, error)

	RecordStep(ctx context.Context, step models.StepStart) error
	CompleteStep(ctx context.Context, completion models.StepCompletion) error
	Steps(ctx context.Context, sessionID string) ([]*models.ExecutionStep, error)
}

// WebhookRepository stores outbound webhook subscriptions.
type WebhookRepository interface {
	List(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error)
	ByID(ctx context.Context, id string) (*models.WebhookSubscription, error)
	Save(ctx context.Context, webhook *models.WebhookSubscription) error
	Delete(ctx context.Context, id string) error
	ForEvent(ctx context.Context, eventType string) ([]*models.WebhookSubscription, error)
}
