package services

import (
	"context"
	"fmt"

	"github.com/chainreact/chainreact/pkg/models"
)

// Activate validates a workflow and makes it receive trigger events.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusActive {
		return nil, NewConflictError("Activate", "", ErrAlreadyActive)
	}

	workflow.Status = models.WorkflowStatusActive

	if err := w.Validate(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to activate workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow activated", "workflow_id", workflowID)

	return workflow, nil
}

// Deactivate stops a workflow from receiving trigger events. History is kept.
func (w *Workflow) Deactivate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, NewConflictError("Deactivate", "", ErrWorkflowNotActive)
	}

	workflow.Status = models.WorkflowStatusInactive

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to deactivate workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow deactivated", "workflow_id", workflowID)

	return workflow, nil
}
