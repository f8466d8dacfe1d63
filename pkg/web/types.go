// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/chainreact/chainreact/pkg/models"
)

// CreateWorkflowRequest is the body of POST /workflows.
type CreateWorkflowRequest struct {
	Name          string                 `json:"name"                    validate:"required,min=3"`
	Description   string                 `json:"description"`
	Status        models.WorkflowStatus  `json:"status"                  validate:"omitempty,oneof=draft active inactive"`
	Nodes         []*models.WorkflowNode `json:"nodes"                   validate:"dive"`
	Edges         []*models.Edge         `json:"connections"             validate:"dive"`
	Variables     map[string]any         `json:"variables"`
	Configuration map[string]any         `json:"configuration,omitempty"`
	Owner         string                 `json:"owner"                   validate:"required"`
}

// UpdateWorkflowRequest replaces a workflow graph. Owner and status default to
// the stored values.
type UpdateWorkflowRequest struct {
	Name          string                 `json:"name"                    validate:"required,min=3"`
	Description   string                 `json:"description"`
	Status        models.WorkflowStatus  `json:"status"                  validate:"omitempty,oneof=draft active inactive"`
	Nodes         []*models.WorkflowNode `json:"nodes"                   validate:"dive"`
	Edges         []*models.Edge         `json:"connections"             validate:"dive"`
	Variables     map[string]any         `json:"variables"`
	Configuration map[string]any         `json:"configuration,omitempty"`
	Owner         string                 `json:"owner"`
}

// ExecuteWorkflowRequest is the body of POST /workflows/:id/execute.
type ExecuteWorkflowRequest struct {
	Input         map[string]any            `json:"input"`
	Mode          models.ExecutionMode      `json:"mode"            validate:"omitempty,oneof=live intercept skip"`
	SkipNodes     []string                  `json:"skip_nodes"`
	MockOutputs   map[string]map[string]any `json:"mock_outputs"`
	TriggerNodeID string                    `json:"trigger_node_id"`
}

// ExecuteWorkflowResponse identifies the session a manual run created.
type ExecuteWorkflowResponse struct {
	ExecutionID string               `json:"execution_id"`
	Status      models.SessionStatus `json:"status"`
}

// RegisterSubscriptionRequest is the body of POST /subscriptions.
type RegisterSubscriptionRequest struct {
	AccountID     string          `json:"account_id"     validate:"required"`
	IntegrationID string          `json:"integration_id" validate:"required"`
	Provider      models.Provider `json:"provider"       validate:"required"`
	ScopeMetadata map[string]any  `json:"scope_metadata"`
	ExpiresAt     *time.Time      `json:"expires_at"`
}

// WebhookRequest is the body of POST and PUT /webhooks.
type WebhookRequest struct {
	Name       string            `json:"name"        validate:"required"`
	OwnerID    string            `json:"owner_id"`
	EventTypes []string          `json:"event_types" validate:"required,min=1"`
	TargetURL  string            `json:"target_url"  validate:"required,url"`
	SecretKey  string            `json:"secret_key"`
	Headers    map[string]string `json:"headers"`
	IsActive   *bool             `json:"is_active"`
}

// WebhookResponse never echoes the signing secret.
type WebhookResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	OwnerID    string            `json:"owner_id"`
	EventTypes []string          `json:"event_types"`
	TargetURL  string            `json:"target_url"`
	HasSecret  bool              `json:"has_secret"`
	Headers    map[string]string `json:"headers,omitempty"`
	IsActive   bool              `json:"is_active"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// TransformWebhookResponse filters a stored webhook for output.
func TransformWebhookResponse(webhook *models.WebhookSubscription) WebhookResponse {
	return WebhookResponse{
		ID:         webhook.ID,
		Name:       webhook.Name,
		OwnerID:    webhook.OwnerID,
		EventTypes: webhook.EventTypes,
		TargetURL:  webhook.TargetURL,
		HasSecret:  webhook.SecretKey != "",
		Headers:    webhook.Headers,
		IsActive:   webhook.IsActive,
		CreatedAt:  webhook.CreatedAt,
		UpdatedAt:  webhook.UpdatedAt,
	}
}

// Pagination accompanies list responses.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

// DataResponse is the success envelope of every endpoint.
type DataResponse struct {
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}
