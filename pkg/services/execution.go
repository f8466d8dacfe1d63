package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/workflow"
)

// Dispatcher starts a run and returns its session.
type Dispatcher interface {
	Dispatch(ctx context.Context, req workflow.Request) (*models.ExecutionSession, error)
}

// ExecuteRequest starts a manual run.
type ExecuteRequest struct {
	Input         map[string]any
	TriggerNodeID string
	Options       models.ExecutionOptions
}

// Execution starts manual runs and reads execution history.
type Execution struct {
	persistence persistence.Persistence
	dispatcher  Dispatcher
	logger      *slog.Logger
}

func NewExecution(persistence persistence.Persistence, dispatcher Dispatcher, logger *slog.Logger) *Execution {
	return &Execution{
		persistence: persistence,
		dispatcher:  dispatcher,
		logger:      logger.With("module", "execution_service"),
	}
}

// Execute runs a workflow from its manual trigger, or from its first trigger
// when it has none.
func (e *Execution) Execute(ctx context.Context, workflowID string, req ExecuteRequest) (*models.ExecutionSession, error) {
	const op = "Execute"

	wf, err := e.persistence.Workflows().ByID(ctx, workflowID)
	if err != nil {
		return nil, lookupError(op, "workflow not found", err)
	}

	switch req.Options.Mode {
	case "", models.ModeLive, models.ModeIntercept, models.ModeSkip:
	default:
		return nil, NewValidationError(op, fmt.Sprintf("invalid mode '%s'", req.Options.Mode), ErrInvalidRequest)
	}

	trigger, err := pickTrigger(wf, req.TriggerNodeID)
	if err != nil {
		return nil, err
	}

	input := req.Input
	if input == nil {
		input = map[string]any{}
	}

	session, err := e.dispatcher.Dispatch(ctx, workflow.Request{
		Workflow:    wf,
		TriggerNode: trigger,
		Source:      models.TriggerSourceManual,
		Input:       input,
		Options:     req.Options,
	})
	if err != nil {
		return session, fmt.Errorf("manual execution of workflow %s: %w", workflowID, err)
	}

	e.logger.InfoContext(ctx, "Manual execution finished",
		"workflow_id", workflowID,
		"execution_id", session.ID,
		"status", session.Status,
	)

	return session, nil
}

func pickTrigger(wf *models.Workflow, nodeID string) (*models.WorkflowNode, error) {
	if nodeID != "" {
		node := wf.NodeByID(nodeID)
		if node == nil || !node.IsTrigger() || node.Disabled {
			return nil, NewValidationError("Execute", fmt.Sprintf("'%s' is not an enabled trigger node", nodeID), ErrInvalidRequest)
		}

		return node, nil
	}

	triggers := wf.TriggerNodes()
	if len(triggers) == 0 {
		return nil, NewValidationError("Execute", "", ErrTriggerNodeRequired)
	}

	for _, node := range triggers {
		if node.Type == models.NodeTypeManualTrigger {
			return node, nil
		}
	}

	return triggers[0], nil
}

// Get returns one session.
func (e *Execution) Get(ctx context.Context, sessionID string) (*models.ExecutionSession, error) {
	session, err := e.persistence.Executions().SessionByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError("GetExecution", "execution not found", err)
	}

	return session, nil
}

// Steps returns the recorded node history of a session in execution order.
func (e *Execution) Steps(ctx context.Context, sessionID string) ([]*models.ExecutionStep, error) {
	if _, err := e.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	steps, err := e.persistence.Executions().Steps(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps of %s: %w", sessionID, err)
	}

	return steps, nil
}

// ListByWorkflow returns the sessions of a workflow.
func (e *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionSession, error) {
	if _, err := e.persistence.Workflows().ByID(ctx, workflowID); err != nil {
		return nil, lookupError("ListExecutions", "workflow not found", err)
	}

	sessions, err := e.persistence.Executions().SessionsByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return sessions, nil
}
