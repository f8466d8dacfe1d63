package file

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

const workflowsCollection = "workflows"

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store *store
}

// List returns a page of non-deleted workflows ordered by creation time, newest first.
func (wr *WorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	all, err := wr.All(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if opts.OwnerID != "" && workflow.Owner != opts.OwnerID {
			continue
		}

		if opts.Status != nil && workflow.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, workflow)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := int64(len(filtered))
	if opts.Offset >= len(filtered) {
		return &persistence.WorkflowListResult{Workflows: []*models.Workflow{}, TotalCount: total}, nil
	}

	end := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.WorkflowListResult{
		Workflows:   filtered[opts.Offset:end],
		TotalCount:  total,
		HasNextPage: end < len(filtered),
	}, nil
}

// All returns every non-deleted workflow.
func (wr *WorkflowRepository) All(_ context.Context) ([]*models.Workflow, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	workflows, err := loadAll[models.Workflow](wr.store, workflowsCollection)
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(workflows, func(w *models.Workflow) bool { return w.DeletedAt != nil }), nil
}

// ByID returns a non-deleted workflow.
func (wr *WorkflowRepository) ByID(_ context.Context, id string) (*models.Workflow, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	var workflow models.Workflow

	found, err := wr.store.read(workflowsCollection, id, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("ByID", id, err)
	}

	if !found || workflow.DeletedAt != nil {
		return nil, persistence.NewWorkflowError("ByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// Save upserts a workflow document. Trigger registrations are derived on read.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if err := wr.store.write(workflowsCollection, workflow.ID, workflow); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete soft deletes a workflow.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	var workflow models.Workflow

	found, err := wr.store.read(workflowsCollection, id, &workflow)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if !found || workflow.DeletedAt != nil {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	now := time.Now().UTC()
	workflow.DeletedAt = &now
	workflow.UpdatedAt = now

	if err := wr.store.write(workflowsCollection, id, &workflow); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

// ActiveTriggers scans the active workflows of ownerID.
func (wr *WorkflowRepository) ActiveTriggers(ctx context.Context, provider models.Provider, ownerID string, triggerTypes []string) ([]models.TriggerRegistration, error) {
	workflows, err := wr.All(ctx)
	if err != nil {
		return nil, err
	}

	var registrations []models.TriggerRegistration

	for _, workflow := range workflows {
		if workflow.Owner != ownerID {
			continue
		}

		for _, registration := range models.TriggerRegistrations(workflow) {
			if registration.Provider == provider && slices.Contains(triggerTypes, registration.TriggerType) {
				registrations = append(registrations, registration)
			}
		}
	}

	return registrations, nil
}
