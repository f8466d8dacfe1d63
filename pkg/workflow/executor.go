// Package workflow runs workflow graphs: the executor walks the DAG from a
// trigger node and the dispatcher wraps each run in an execution session.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/otelhelper"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/protocol"
	"github.com/chainreact/chainreact/pkg/registry"
	"github.com/chainreact/chainreact/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrTriggerNodeNotFound = errors.New("trigger node not found in workflow")

// previewer is implemented by nodes that can describe the call they would make.
type previewer interface {
	Preview(execCtx models.ExecutionContext) map[string]any
}

// RunResult summarizes one traversal.
type RunResult struct {
	Status      models.SessionStatus
	NodeOutputs map[string]any
	Executed    []string
	// Failures maps failed node ids to their error message.
	Failures map[string]string
	PausedAt string
	// PauseOutput is the output of the node that paused the run.
	PauseOutput map[string]any
}

// Error returns the first failure in execution order, or "".
func (r *RunResult) Error() (nodeID, message string) {
	for _, id := range r.Executed {
		if msg, ok := r.Failures[id]; ok {
			return id, msg
		}
	}

	return "", ""
}

// Executor walks a workflow graph depth-first from its trigger node.
type Executor struct {
	registry *registry.Registry
	history  persistence.ExecutionRepository
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewExecutor(reg *registry.Registry, history persistence.ExecutionRepository, tracer trace.Tracer, logger *slog.Logger) *Executor {
	if tracer == nil {
		tracer = otelhelper.Noop()
	}

	return &Executor{
		registry: reg,
		history:  history,
		tracer:   tracer,
		logger:   logger.With("module", "workflow_executor"),
	}
}

type run struct {
	session  *models.ExecutionSession
	workflow *models.Workflow
	execCtx  models.ExecutionContext
	visited  map[string]bool
	result   *RunResult
	logger   *slog.Logger
}

// Run executes the graph of workflow for session, starting at the session's
// trigger node. Node failures are part of the result, not errors.
func (e *Executor) Run(ctx context.Context, session *models.ExecutionSession, workflow *models.Workflow) (*RunResult, error) {
	trigger := workflow.NodeByID(session.TriggerNodeID)
	if trigger == nil {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNodeNotFound, session.TriggerNodeID)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, session.ID),
		attribute.String(otelhelper.ExecutionModeKey, string(session.Options.Mode)),
	)
	defer span.End()

	r := &run{
		session:  session,
		workflow: workflow,
		execCtx: models.ExecutionContext{
			SessionID:   session.ID,
			WorkflowID:  workflow.ID,
			OwnerID:     session.OwnerID,
			TriggerData: session.InputData,
			NodeOutputs: make(map[string]any),
			Variables:   workflow.Variables,
		},
		visited: make(map[string]bool),
		result: &RunResult{
			NodeOutputs: make(map[string]any),
			Failures:    make(map[string]string),
		},
		logger: e.logger.With("workflow_id", workflow.ID, "execution_id", session.ID),
	}

	r.logger.InfoContext(ctx, "Starting workflow run", "trigger_node_id", trigger.ID, "mode", session.Options.Mode)

	e.visit(ctx, r, trigger.ID)

	switch {
	case r.result.PausedAt != "":
		r.result.Status = models.SessionPaused
	case len(r.result.Failures) > 0:
		r.result.Status = models.SessionFailed
		nodeID, msg := r.result.Error()
		otelhelper.SetFailure(span, nodeID+": "+msg)
	default:
		r.result.Status = models.SessionCompleted
	}

	r.result.NodeOutputs = r.execCtx.NodeOutputs

	r.logger.InfoContext(ctx, "Workflow run finished",
		"status", r.result.Status,
		"nodes_executed", len(r.result.Executed),
		"nodes_failed", len(r.result.Failures),
	)

	return r.result, nil
}

func (e *Executor) visit(ctx context.Context, r *run, nodeID string) {
	if r.visited[nodeID] {
		return
	}

	r.visited[nodeID] = true

	node := r.workflow.NodeByID(nodeID)
	if node == nil {
		r.logger.WarnContext(ctx, "Edge points to a missing node", "node_id", nodeID)

		return
	}

	if node.Disabled {
		r.logger.DebugContext(ctx, "Node disabled, path stops", "node_id", nodeID)

		return
	}

	result := e.executeNode(ctx, r, node)

	r.result.Executed = append(r.result.Executed, node.ID)

	if !result.Success {
		r.result.Failures[node.ID] = result.Error

		return
	}

	r.execCtx.NodeOutputs[node.ID] = result.Output

	if result.PauseExecution {
		if r.result.PausedAt == "" {
			r.result.PausedAt = node.ID
			r.result.PauseOutput = result.Output
		}

		return
	}

	for _, edge := range route(r.workflow.OutgoingEdges(node.ID), result) {
		e.visit(ctx, r, edge.Target)
	}
}

// route selects the outgoing edges a result continues on. Routing results only
// follow edges whose path matches; plain results follow every edge.
func route(edges []*models.Edge, result models.NodeExecutionResult) []*models.Edge {
	switch {
	case result.SelectedPaths != nil:
		var selected []*models.Edge

		for _, edge := range edges {
			if slices.Contains(result.SelectedPaths, edge.Path()) {
				selected = append(selected, edge)
			}
		}

		return selected
	case result.PathTaken != "":
		var selected []*models.Edge

		for _, edge := range edges {
			if edge.Path() == result.PathTaken {
				selected = append(selected, edge)
			}
		}

		return selected
	default:
		return edges
	}
}

func (e *Executor) executeNode(ctx context.Context, r *run, node *models.WorkflowNode) models.NodeExecutionResult {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	logger := r.logger.With("node_id", node.ID, "node_type", node.Type)

	config := template.ResolveConfig(node.Config, template.Data(&r.execCtx))
	start := models.StepStart{
		SessionID: r.session.ID,
		NodeID:    node.ID,
		NodeType:  node.Type,
		Label:     node.DisplayName(),
		Config:    config,
	}

	instance, substitute, preview := e.prepare(ctx, r, node, config)
	start.Preview = preview

	if err := e.history.RecordStep(ctx, start); err != nil {
		logger.ErrorContext(ctx, "Failed to record step start", "error", err)
	}

	result := e.execute(ctx, r, instance, substitute)

	completion := models.StepCompletion{
		SessionID: r.session.ID,
		NodeID:    node.ID,
		Output:    result.Output,
	}

	switch {
	case !result.Success:
		completion.Status = models.StepFailed
		completion.ErrorMessage = result.Error
		completion.ErrorDetail = map[string]any{"node_type": node.Type, "config": config}

		otelhelper.SetFailure(span, result.Error)
		logger.ErrorContext(ctx, "Node failed", "error", result.Error)
	case result.PauseExecution:
		completion.Status = models.StepPaused

		logger.InfoContext(ctx, "Node paused the run")
	default:
		completion.Status = models.StepCompleted

		logger.DebugContext(ctx, "Node completed", "path_taken", result.PathTaken)
	}

	if err := e.history.CompleteStep(ctx, completion); err != nil {
		logger.ErrorContext(ctx, "Failed to record step completion", "error", err)
	}

	return result
}

// prepare builds the node instance. In skip and intercept mode, or when the
// node cannot be built, it returns the substitute result instead. The map is
// the preview recorded with the step start.
func (e *Executor) prepare(ctx context.Context, r *run, node *models.WorkflowNode, config map[string]any) (protocol.Node, *models.NodeExecutionResult, map[string]any) {
	opts := r.session.Options

	if opts.Mode == models.ModeSkip && skips(opts, node) {
		output, ok := opts.MockOutputs[node.ID]
		if !ok {
			output = map[string]any{"skipped": true, "node_type": node.Type}
		}

		result := models.Succeeded(output)

		return nil, &result, nil
	}

	if _, ok := e.registry.Factory(node.Type); !ok {
		result := models.Failed(fmt.Sprintf("unknown node type %q", node.Type))

		return nil, &result, nil
	}

	instance, err := e.registry.CreateNode(ctx, node.Type, node.ID, config)
	if err != nil {
		result := models.Failed(fmt.Sprintf("invalid node: %v", err))

		return nil, &result, nil
	}

	kind, known := node.Kind()
	if opts.Mode == models.ModeIntercept && known && kind.Category.Capabilities().IsExternalEffect {
		wouldSend := config
		if p, ok := instance.(previewer); ok {
			wouldSend = p.Preview(r.execCtx)
		}

		preview := map[string]any{
			"intercepted": true,
			"node_type":   node.Type,
			"would_send":  wouldSend,
		}
		result := models.Succeeded(preview)

		return nil, &result, preview
	}

	return instance, nil, nil
}

func (e *Executor) execute(ctx context.Context, r *run, instance protocol.Node, substitute *models.NodeExecutionResult) models.NodeExecutionResult {
	if substitute != nil {
		return *substitute
	}

	result, err := instance.Execute(ctx, r.execCtx)
	if err != nil {
		return models.Failed(err.Error())
	}

	return result
}

func skips(opts models.ExecutionOptions, node *models.WorkflowNode) bool {
	if len(opts.SkipNodes) == 0 {
		return !node.IsTrigger()
	}

	return slices.Contains(opts.SkipNodes, node.ID)
}
