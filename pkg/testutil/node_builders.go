// Package testutil provides test data builders for workflow graphs.
package testutil

import (
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a log node that overrides can turn into anything else.
func CreateTestNode(id string, overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:        id,
		Type:      models.NodeTypeLog,
		Label:     "Test Node " + id,
		Config:    map[string]any{"message": "test " + id, "level": "info"},
		PositionX: 100,
		PositionY: 200,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithType sets the node type.
func WithType(nodeType string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Type = nodeType
	}
}

// WithTriggerNode configures the node as a manual trigger.
func WithTriggerNode() func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Type = models.NodeTypeManualTrigger
		n.Config = map[string]any{}
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Config = config
	}
}

// WithLabel sets the node label.
func WithLabel(label string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Label = label
	}
}

// WithDisabled disables the node.
func WithDisabled() func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Disabled = true
	}
}

// Edge connects source to target.
func Edge(source, target string) *models.Edge {
	return &models.Edge{ID: source + "->" + target, Source: source, Target: target}
}

// PathEdge connects source to target on a named routing path.
func PathEdge(source, target, path string) *models.Edge {
	edge := Edge(source, target)
	edge.SourceHandle = path

	return edge
}

// CreateTestWorkflow creates an active workflow owned by "owner-1".
func CreateTestWorkflow(nodes []*models.WorkflowNode, edges []*models.Edge, overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:        uuid.NewString(),
		Name:      "Test Workflow",
		Status:    models.WorkflowStatusActive,
		Nodes:     nodes,
		Edges:     edges,
		Variables: map[string]any{},
		Owner:     "owner-1",
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithWorkflowStatus sets the workflow status.
func WithWorkflowStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithOwner sets the workflow owner.
func WithOwner(owner string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Owner = owner
	}
}

// WithVariables sets the workflow variables.
func WithVariables(vars map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Variables = vars
	}
}
