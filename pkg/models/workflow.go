// Package models defines the core domain models for event-driven workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, never triggered
	WorkflowStatusActive   WorkflowStatus = "active"   // Receives trigger events
	WorkflowStatusInactive WorkflowStatus = "inactive" // Kept for history, not triggered
)

// Workflow is a directed graph of trigger and action nodes.
type Workflow struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"                    validate:"required,min=3"`
	Description   string          `json:"description,omitempty"`
	Status        WorkflowStatus  `json:"status"                  validate:"required,oneof=draft active inactive"`
	Nodes         []*WorkflowNode `json:"nodes"                   validate:"dive"`
	Edges         []*Edge         `json:"connections"             validate:"dive"`
	Variables     map[string]any  `json:"variables,omitempty"`
	Configuration map[string]any  `json:"configuration,omitempty"`
	Owner         string          `json:"owner"                   validate:"required"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// IsActive reports whether the workflow should receive trigger events.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive && w.DeletedAt == nil
}

// NodeByID returns the node with the given id or nil.
func (w *Workflow) NodeByID(id string) *WorkflowNode {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// OutgoingEdges returns the edges leaving nodeID in declaration order.
func (w *Workflow) OutgoingEdges(nodeID string) []*Edge {
	var edges []*Edge

	for _, edge := range w.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// TriggerNodes returns every trigger node of the graph.
func (w *Workflow) TriggerNodes() []*WorkflowNode {
	var triggers []*WorkflowNode

	for _, node := range w.Nodes {
		if node.IsTrigger() && !node.Disabled {
			triggers = append(triggers, node)
		}
	}

	return triggers
}

// ReachableFrom returns the ids of every node reachable forward from startID,
// including startID itself.
func (w *Workflow) ReachableFrom(startID string) map[string]bool {
	seen := map[string]bool{startID: true}
	queue := []string{startID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range w.OutgoingEdges(current) {
			if !seen[edge.Target] {
				seen[edge.Target] = true
				queue = append(queue, edge.Target)
			}
		}
	}

	return seen
}
