package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/lib/pq"
)

const workflowColumns = `id, name, description, status, nodes, edges, variables, configuration,
	owner, created_at, updated_at, deleted_at`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// List returns a page of non-deleted workflows, newest first.
func (r *WorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	where := "WHERE deleted_at IS NULL AND ($1 = '' OR owner = $1) AND ($2 = '' OR status = $2)"

	status := ""
	if opts.Status != nil {
		status = string(*opts.Status)
	}

	var total int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflows "+where, opts.OwnerID, status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	query := "SELECT " + workflowColumns + " FROM workflows " + where + " ORDER BY created_at DESC LIMIT $3 OFFSET $4"

	workflows, err := r.query(ctx, query, opts.OwnerID, status, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows,
		TotalCount:  total,
		HasNextPage: int64(opts.Offset+len(workflows)) < total,
	}, nil
}

// All returns every non-deleted workflow.
func (r *WorkflowRepository) All(ctx context.Context) ([]*models.Workflow, error) {
	return r.query(ctx, "SELECT "+workflowColumns+" FROM workflows WHERE deleted_at IS NULL ORDER BY created_at")
}

// ByID returns a non-deleted workflow.
func (r *WorkflowRepository) ByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+workflowColumns+" FROM workflows WHERE id = $1 AND deleted_at IS NULL", id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		return nil, persistence.NewWorkflowError("ByID", id, notFound(err, persistence.ErrWorkflowNotFound))
	}

	return workflow, nil
}

// Save upserts the workflow and rewrites its trigger registrations in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	params, err := workflowParams(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			variables = EXCLUDED.variables,
			configuration = EXCLUDED.configuration,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`, params...)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to upsert workflow: %w", err))
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_triggers WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to clear triggers: %w", err))
	}

	for _, registration := range models.TriggerRegistrations(workflow) {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_triggers (workflow_id, node_id, trigger_type, provider, owner_id)
			VALUES ($1, $2, $3, $4, $5)
		`, registration.WorkflowID, registration.NodeID, registration.TriggerType, string(registration.Provider), registration.OwnerID)
		if err != nil {
			return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to register trigger %s: %w", registration.NodeID, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete soft deletes a workflow and drops its trigger registrations.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE workflows SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM workflow_triggers WHERE workflow_id = $1", id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

// ActiveTriggers reads the trigger index maintained by Save.
func (r *WorkflowRepository) ActiveTriggers(ctx context.Context, provider models.Provider, ownerID string, triggerTypes []string) ([]models.TriggerRegistration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT workflow_id, node_id, trigger_type, provider, owner_id
		FROM workflow_triggers
		WHERE provider = $1 AND owner_id = $2 AND trigger_type = ANY($3)
		ORDER BY workflow_id, node_id
	`, string(provider), ownerID, pq.Array(triggerTypes))
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	var registrations []models.TriggerRegistration

	for rows.Next() {
		var (
			registration models.TriggerRegistration
			providerName string
		)

		err := rows.Scan(&registration.WorkflowID, &registration.NodeID, &registration.TriggerType, &providerName, &registration.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}

		registration.Provider = models.Provider(providerName)
		registrations = append(registrations, registration)
	}

	return registrations, rows.Err()
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}

func workflowParams(workflow *models.Workflow) ([]any, error) {
	nodes, err := jsonParam(workflow.Nodes, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edges, err := jsonParam(workflow.Edges, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal edges: %w", err)
	}

	variables, err := jsonParam(workflow.Variables, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variables: %w", err)
	}

	configuration, err := jsonParam(workflow.Configuration, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}

	return []any{
		workflow.ID, workflow.Name, workflow.Description, string(workflow.Status),
		nodes, edges, variables, configuration,
		workflow.Owner, workflow.CreatedAt, workflow.UpdatedAt, workflow.DeletedAt,
	}, nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow                               models.Workflow
		status                                 string
		nodes, edges, variables, configuration []byte
		deletedAt                              sql.NullTime
	)

	err := row.Scan(
		&workflow.ID, &workflow.Name, &workflow.Description, &status,
		&nodes, &edges, &variables, &configuration,
		&workflow.Owner, &workflow.CreatedAt, &workflow.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Status = models.WorkflowStatus(status)

	if deletedAt.Valid {
		workflow.DeletedAt = &deletedAt.Time
	}

	for column, target := range map[string]struct {
		data []byte
		out  any
	}{
		"nodes":         {nodes, &workflow.Nodes},
		"edges":         {edges, &workflow.Edges},
		"variables":     {variables, &workflow.Variables},
		"configuration": {configuration, &workflow.Configuration},
	} {
		if err := unmarshalJSON(target.data, target.out); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", column, err)
		}
	}

	return &workflow, nil
}
