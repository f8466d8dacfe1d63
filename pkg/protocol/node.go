// Package protocol defines the contracts between the executor and the nodes it runs.
package protocol

import (
	"context"

	"github.com/chainreact/chainreact/pkg/models"
)

// Node is one configured node instance, created fresh for every execution.
type Node interface {
	ID() string
	Type() string
	Execute(ctx context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error)
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a node from an already resolved config.
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// ID returns the node type tag this factory builds.
	ID() string

	Name() string

	Description() string

	// Schema returns the JSON schema the node config is validated against.
	Schema() map[string]any
}
