package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainreact/chainreact/pkg/eventbus"
	"github.com/chainreact/chainreact/pkg/events"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/google/uuid"
)

// Runner executes a session's graph.
type Runner interface {
	Run(ctx context.Context, session *models.ExecutionSession, workflow *models.Workflow) (*RunResult, error)
}

// Request describes one run to start.
type Request struct {
	Workflow    *models.Workflow
	TriggerNode *models.WorkflowNode
	Source      models.TriggerSource
	Input       map[string]any
	Options     models.ExecutionOptions
}

// Dispatcher turns trigger matches into execution sessions and runs them.
type Dispatcher struct {
	executions persistence.ExecutionRepository
	runner     Runner
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewDispatcher(executions persistence.ExecutionRepository, runner Runner, publisher eventbus.EventPublisher, logger *slog.Logger) *Dispatcher {
	if publisher == nil {
		publisher = eventbus.NopPublisher{}
	}

	return &Dispatcher{
		executions: executions,
		runner:     runner,
		publisher:  publisher,
		logger:     logger.With("module", "execution_dispatcher"),
		now:        time.Now,
	}
}

// Dispatch creates the session and runs it to a terminal status. An error means
// the run could not be started or carried out; failed nodes only show in the
// returned session's status.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*models.ExecutionSession, error) {
	if req.Workflow == nil || req.TriggerNode == nil {
		return nil, fmt.Errorf("dispatch requires a workflow and a trigger node")
	}

	if req.Options.Mode == "" {
		req.Options.Mode = models.ModeLive
	}

	session := &models.ExecutionSession{
		ID:            uuid.NewString(),
		WorkflowID:    req.Workflow.ID,
		OwnerID:       req.Workflow.Owner,
		TriggerNodeID: req.TriggerNode.ID,
		TriggerSource: req.Source,
		InputData:     req.Input,
		Options:       req.Options,
		Status:        models.SessionPending,
		CreatedAt:     d.now().UTC(),
	}

	logger := d.logger.With("workflow_id", session.WorkflowID, "execution_id", session.ID)

	if err := d.executions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session for workflow %s: %w", session.WorkflowID, err)
	}

	startedAt := d.now().UTC()
	session.Status = models.SessionRunning
	session.StartedAt = &startedAt

	if err := d.executions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("start session %s: %w", session.ID, err)
	}

	d.publish(ctx, logger, req.Workflow.ID, events.ExecutionStarted{
		BaseEvent:     d.baseEvent(events.ExecutionStartedEvent, session),
		ExecutionID:   session.ID,
		WorkflowName:  req.Workflow.Name,
		TriggerNodeID: session.TriggerNodeID,
		TriggerSource: session.TriggerSource,
		TriggerData:   session.InputData,
		Mode:          session.Options.Mode,
	})

	logger.InfoContext(ctx, "Dispatching execution", "trigger_node_id", session.TriggerNodeID, "source", session.TriggerSource)

	result, runErr := d.runner.Run(ctx, session, req.Workflow)

	completedAt := d.now().UTC()
	session.CompletedAt = &completedAt
	duration := completedAt.Sub(startedAt).Milliseconds()

	if runErr != nil {
		session.Status = models.SessionFailed
		session.ErrorMessage = runErr.Error()

		if err := d.executions.SaveSession(ctx, session); err != nil {
			logger.ErrorContext(ctx, "Failed to save failed session", "error", err)
		}

		d.publish(ctx, logger, req.Workflow.ID, events.ExecutionFailed{
			BaseEvent:   d.baseEvent(events.ExecutionFailedEvent, session),
			ExecutionID: session.ID,
			Status:      string(session.Status),
			DurationMs:  duration,
			Error:       events.ExecutionError{Message: runErr.Error()},
		})

		return session, fmt.Errorf("run session %s: %w", session.ID, runErr)
	}

	session.Status = result.Status
	if nodeID, msg := result.Error(); nodeID != "" {
		session.ErrorMessage = fmt.Sprintf("node %s: %s", nodeID, msg)
	}

	if err := d.executions.SaveSession(ctx, session); err != nil {
		return session, fmt.Errorf("finish session %s: %w", session.ID, err)
	}

	switch session.Status {
	case models.SessionPaused:
		d.publish(ctx, logger, req.Workflow.ID, events.ExecutionPaused{
			BaseEvent:    d.baseEvent(events.ExecutionPausedEvent, session),
			ExecutionID:  session.ID,
			Status:       string(session.Status),
			PausedAtNode: result.PausedAt,
			PauseReason:  "approval required",
			ApprovalData: result.PauseOutput,
		})
	case models.SessionFailed:
		nodeID, msg := result.Error()
		d.publish(ctx, logger, req.Workflow.ID, events.ExecutionFailed{
			BaseEvent:     d.baseEvent(events.ExecutionFailedEvent, session),
			ExecutionID:   session.ID,
			Status:        string(session.Status),
			DurationMs:    duration,
			Error:         events.ExecutionError{NodeID: nodeID, Message: msg},
			NodesExecuted: len(result.Executed),
		})
	default:
		d.publish(ctx, logger, req.Workflow.ID, events.ExecutionCompleted{
			BaseEvent:     d.baseEvent(events.ExecutionCompletedEvent, session),
			ExecutionID:   session.ID,
			Status:        string(session.Status),
			DurationMs:    duration,
			NodesExecuted: len(result.Executed),
			FinalResults:  result.NodeOutputs,
		})
	}

	logger.InfoContext(ctx, "Execution finished", "status", session.Status, "duration_ms", duration)

	return session, nil
}

func (d *Dispatcher) baseEvent(eventType events.EventType, session *models.ExecutionSession) events.BaseEvent {
	base := events.NewBaseEvent(eventType, session.WorkflowID)
	base.OwnerID = session.OwnerID

	return base
}

// publish never fails the run: lifecycle events are notifications only.
func (d *Dispatcher) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if err := d.publisher.Publish(ctx, key, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}

// TriggerPayload assembles the trigger data a change-driven run starts with.
func TriggerPayload(change *models.Change, sub *models.WatchSubscription) map[string]any {
	params := make(map[string]any, len(change.Scope.Params))
	for k, v := range change.Scope.Params {
		params[k] = v
	}

	payload := map[string]any{
		"provider":          string(change.Provider),
		"change_type":       string(change.ChangeType),
		"resource_identity": change.ResourceIdentity,
		"is_folder":         change.IsFolder,
		"item":              change.Item,
		"scope": map[string]any{
			"account_id":     change.Scope.AccountID,
			"integration_id": change.Scope.IntegrationID,
			"params":         params,
		},
	}

	if change.Timestamp != nil {
		payload["timestamp"] = change.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	if sub != nil {
		payload["account_id"] = sub.AccountID
		payload["integration_id"] = sub.IntegrationID
		payload["subscription_id"] = sub.ID
		payload["metadata"] = sub.ScopeMetadata
	}

	return payload
}
