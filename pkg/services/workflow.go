package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/registry"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, registry *registry.Registry, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		registry:    registry,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows. Page is 1-based.
type ListWorkflowsRequest struct {
	Page  int
	Limit int

	OwnerID string
	Status  *models.WorkflowStatus
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
	Page        int
	Limit       int
}

// ListWorkflows retrieves a page of workflows.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if err := normalizeListRequest(&req); err != nil {
		return nil, err
	}

	result, err := w.persistence.Workflows().List(ctx, persistence.ListWorkflowsOptions{
		OwnerID: req.OwnerID,
		Status:  req.Status,
		Limit:   req.Limit,
		Offset:  (req.Page - 1) * req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &ListWorkflowsResponse{
		Workflows:   result.Workflows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
		Page:        req.Page,
		Limit:       req.Limit,
	}, nil
}

func normalizeListRequest(req *ListWorkflowsRequest) error {
	if req.Page <= 0 {
		req.Page = 1
	}

	if req.Limit <= 0 {
		req.Limit = defaultPageSize
	}

	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}

	if req.Status != nil && !validStatus(*req.Status) {
		return NewValidationError("ListWorkflows", fmt.Sprintf("invalid status '%s'", *req.Status), ErrInvalidStatus)
	}

	if req.OwnerID != "" {
		req.OwnerID = strings.TrimSpace(req.OwnerID)
		if req.OwnerID == "" {
			return NewValidationError("ListWorkflows", "", ErrEmptyOwnerID)
		}
	}

	return nil
}

func validStatus(status models.WorkflowStatus) bool {
	return slices.Contains([]models.WorkflowStatus{
		models.WorkflowStatusDraft,
		models.WorkflowStatusActive,
		models.WorkflowStatusInactive,
	}, status)
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().ByID(ctx, id)
	if err != nil {
		return nil, lookupError("FetchByID", "workflow not found", err)
	}

	return workflow, nil
}

// Create validates and stores a new workflow.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("Create", "", ErrWorkflowNil)
	}

	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.DeletedAt = nil

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	if err := w.Validate(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID, "status", workflow.Status)

	return workflow, nil
}

// Update replaces the graph of an existing workflow.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("Update", "", ErrWorkflowNil)
	}

	existing, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	if workflow.Owner == "" {
		workflow.Owner = existing.Owner
	}

	if workflow.Status == "" {
		workflow.Status = existing.Status
	}

	if err := w.Validate(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete soft deletes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if err := w.persistence.Workflows().Delete(ctx, workflowID); err != nil {
		return lookupError("Delete", "workflow not found", err)
	}

	return nil
}

// Validate checks the graph before it is stored.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	const op = "Validate"

	if strings.TrimSpace(workflow.Name) == "" {
		return NewValidationError(op, "", ErrWorkflowNameRequired)
	}

	if !validStatus(workflow.Status) {
		return NewValidationError(op, fmt.Sprintf("invalid status '%s'", workflow.Status), ErrInvalidStatus)
	}

	ids := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if node == nil || node.ID == "" {
			return NewValidationError(op, "every node needs an id", ErrInvalidRequest)
		}

		if ids[node.ID] {
			return NewValidationError(op, fmt.Sprintf("duplicate node id '%s'", node.ID), ErrDuplicateNodeID)
		}

		ids[node.ID] = true

		if err := w.validateNode(node); err != nil {
			return err
		}
	}

	for _, edge := range workflow.Edges {
		if edge == nil || !ids[edge.Source] || !ids[edge.Target] {
			return NewValidationError(op, describeEdge(edge), ErrDanglingEdge)
		}
	}

	if nodeID, ok := findCycle(workflow); ok {
		return NewValidationError(op, fmt.Sprintf("cycle through node '%s'", nodeID), ErrCycle)
	}

	if workflow.Status == models.WorkflowStatusActive && len(workflow.TriggerNodes()) == 0 {
		return NewValidationError(op, "", ErrTriggerNodeRequired)
	}

	return nil
}

func (w *Workflow) validateNode(node *models.WorkflowNode) error {
	const op = "Validate"

	if _, ok := w.registry.Factory(node.Type); !ok {
		return NewValidationError(op, fmt.Sprintf("node '%s' has unknown type '%s'", node.ID, node.Type), ErrUnknownNodeType)
	}

	err := w.registry.ValidateConfig(node.Type, node.Config)
	if err == nil {
		return nil
	}

	var configErr *registry.ConfigError
	if errors.As(err, &configErr) {
		return NewValidationError(op,
			fmt.Sprintf("node '%s' config is invalid: %s", node.ID, strings.Join(configErr.Problems, "; ")),
			ErrInvalidNodeConfig,
		)
	}

	return fmt.Errorf("validate node %s: %w", node.ID, err)
}

func describeEdge(edge *models.Edge) string {
	if edge == nil {
		return "nil edge"
	}

	return fmt.Sprintf("edge %s -> %s references an unknown node", edge.Source, edge.Target)
}

// findCycle reports a node on a cycle, if any.
func findCycle(workflow *models.Workflow) (string, bool) {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(workflow.Nodes))

	var visit func(id string) (string, bool)

	visit = func(id string) (string, bool) {
		state[id] = visiting

		for _, edge := range workflow.OutgoingEdges(id) {
			switch state[edge.Target] {
			case visiting:
				return edge.Target, true
			case unvisited:
				if nodeID, found := visit(edge.Target); found {
					return nodeID, true
				}
			}
		}

		state[id] = done

		return "", false
	}

	for _, node := range workflow.Nodes {
		if state[node.ID] != unvisited {
			continue
		}

		if nodeID, found := visit(node.ID); found {
			return nodeID, true
		}
	}

	return "", false
}

// lookupError turns persistence not-found sentinels into not_found service errors.
func lookupError(op, message string, err error) error {
	if errors.Is(err, persistence.ErrWorkflowNotFound) ||
		errors.Is(err, persistence.ErrSessionNotFound) ||
		errors.Is(err, persistence.ErrSubscriptionNotFound) ||
		errors.Is(err, persistence.ErrWebhookNotFound) {
		return NewNotFoundError(op, message, err)
	}

	if errors.Is(err, persistence.ErrInvalidID) {
		return NewValidationError(op, "invalid identifier", err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
