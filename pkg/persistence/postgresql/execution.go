package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

const sessionColumns = `id, workflow_id, owner_id, trigger_node_id, trigger_source, input_data,
	options, status, error_message, created_at, started_at, completed_at`

const stepColumns = `session_id, node_id, node_type, label, status, config, preview, output,
	error_message, error_detail, started_at, completed_at`

// ExecutionRepository stores execution sessions and their step history.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) SaveSession(ctx context.Context, session *models.ExecutionSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	input, err := jsonParam(session.InputData, "{}")
	if err != nil {
		return &persistence.ExecutionError{Op: "SaveSession", SessionID: session.ID, Err: err}
	}

	options, err := jsonParam(session.Options, "{}")
	if err != nil {
		return &persistence.ExecutionError{Op: "SaveSession", SessionID: session.ID, Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO execution_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			input_data = EXCLUDED.input_data,
			options = EXCLUDED.options,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`,
		session.ID, session.WorkflowID, session.OwnerID, session.TriggerNodeID, string(session.TriggerSource),
		input, options, string(session.Status), session.ErrorMessage,
		session.CreatedAt, session.StartedAt, session.CompletedAt,
	)
	if err != nil {
		return &persistence.ExecutionError{Op: "SaveSession", SessionID: session.ID, Err: err}
	}

	return nil
}

func (r *ExecutionRepository) SessionByID(ctx context.Context, id string) (*models.ExecutionSession, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM execution_sessions WHERE id = $1", id)

	session, err := scanSession(row)
	if err != nil {
		return nil, &persistence.ExecutionError{Op: "SessionByID", SessionID: id, Err: notFound(err, persistence.ErrSessionNotFound)}
	}

	return session, nil
}

func (r *ExecutionRepository) SessionsByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionSession, error) {
	return r.querySessions(ctx,
		"SELECT "+sessionColumns+" FROM execution_sessions WHERE workflow_id = $1 ORDER BY created_at DESC",
		workflowID,
	)
}

func (r *ExecutionRepository) SessionsBetween(ctx context.Context, from, to time.Time) ([]*models.ExecutionSession, error) {
	return r.querySessions(ctx,
		"SELECT "+sessionColumns+" FROM execution_sessions WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at DESC",
		from, to,
	)
}

func (r *ExecutionRepository) querySessions(ctx context.Context, query string, args ...any) ([]*models.ExecutionSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	sessions := make([]*models.ExecutionSession, 0)

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (r *ExecutionRepository) RecordStep(ctx context.Context, step models.StepStart) error {
	config, err := jsonParam(step.Config, "")
	if err != nil {
		return &persistence.ExecutionError{Op: "RecordStep", SessionID: step.SessionID, NodeID: step.NodeID, Err: err}
	}

	preview, err := jsonParam(step.Preview, "")
	if err != nil {
		return &persistence.ExecutionError{Op: "RecordStep", SessionID: step.SessionID, NodeID: step.NodeID, Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO execution_steps (session_id, node_id, node_type, label, status, config, preview, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, step.SessionID, step.NodeID, step.NodeType, step.Label, string(models.StepRunning), config, preview, time.Now().UTC())
	if err != nil {
		return &persistence.ExecutionError{Op: "RecordStep", SessionID: step.SessionID, NodeID: step.NodeID, Err: err}
	}

	return nil
}

// CompleteStep updates the latest running entry of the node.
func (r *ExecutionRepository) CompleteStep(ctx context.Context, completion models.StepCompletion) error {
	output, err := jsonParam(completion.Output, "")
	if err != nil {
		return &persistence.ExecutionError{Op: "CompleteStep", SessionID: completion.SessionID, NodeID: completion.NodeID, Err: err}
	}

	detail, err := jsonParam(completion.ErrorDetail, "")
	if err != nil {
		return &persistence.ExecutionError{Op: "CompleteStep", SessionID: completion.SessionID, NodeID: completion.NodeID, Err: err}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE execution_steps
		SET status = $3, output = $4, error_message = $5, error_detail = $6, completed_at = $7
		WHERE id = (
			SELECT id FROM execution_steps
			WHERE session_id = $1 AND node_id = $2 AND status = 'running'
			ORDER BY id DESC
			LIMIT 1
		)
	`,
		completion.SessionID, completion.NodeID, string(completion.Status),
		output, completion.ErrorMessage, detail, time.Now().UTC(),
	)
	if err != nil {
		return &persistence.ExecutionError{Op: "CompleteStep", SessionID: completion.SessionID, NodeID: completion.NodeID, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.ExecutionError{Op: "CompleteStep", SessionID: completion.SessionID, NodeID: completion.NodeID, Err: err}
	}

	if affected == 0 {
		return &persistence.ExecutionError{Op: "CompleteStep", SessionID: completion.SessionID, NodeID: completion.NodeID, Err: persistence.ErrStepNotFound}
	}

	return nil
}

func (r *ExecutionRepository) Steps(ctx context.Context, sessionID string) ([]*models.ExecutionStep, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+stepColumns+" FROM execution_steps WHERE session_id = $1 ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	steps := make([]*models.ExecutionStep, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, step)
	}

	return steps, rows.Err()
}

func scanSession(row scanner) (*models.ExecutionSession, error) {
	var (
		session                models.ExecutionSession
		source, status         string
		input, options         []byte
		startedAt, completedAt sql.NullTime
	)

	err := row.Scan(
		&session.ID, &session.WorkflowID, &session.OwnerID, &session.TriggerNodeID, &source,
		&input, &options, &status, &session.ErrorMessage,
		&session.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	session.TriggerSource = models.TriggerSource(source)
	session.Status = models.SessionStatus(status)
	session.StartedAt = nullTime(startedAt)
	session.CompletedAt = nullTime(completedAt)

	if err := unmarshalJSON(input, &session.InputData); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}

	if err := unmarshalJSON(options, &session.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}

	return &session, nil
}

func scanStep(row scanner) (*models.ExecutionStep, error) {
	var (
		step                            models.ExecutionStep
		status                          string
		config, preview, output, detail []byte
		completedAt                     sql.NullTime
	)

	err := row.Scan(
		&step.SessionID, &step.NodeID, &step.NodeType, &step.Label, &status,
		&config, &preview, &output, &step.ErrorMessage, &detail,
		&step.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	step.Status = models.StepStatus(status)
	step.CompletedAt = nullTime(completedAt)

	for _, column := range []struct {
		data []byte
		out  *map[string]any
	}{
		{config, &step.Config},
		{preview, &step.Preview},
		{output, &step.Output},
		{detail, &step.ErrorDetail},
	} {
		if err := unmarshalJSON(column.data, column.out); err != nil {
			return nil, fmt.Errorf("failed to decode step column: %w", err)
		}
	}

	return &step, nil
}

func nullTime(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}

	return &value.Time
}
