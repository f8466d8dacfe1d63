// Package trigger provides the trigger nodes. A trigger node starts a run and
// hands the trigger payload to its children unchanged.
package trigger

import (
	"context"

	"github.com/chainreact/chainreact/pkg/models"
)

// TriggerNode passes the trigger payload through as its output.
type TriggerNode struct {
	id       string
	nodeType string
}

func NewTriggerNode(id, nodeType string) *TriggerNode {
	return &TriggerNode{id: id, nodeType: nodeType}
}

func (n *TriggerNode) ID() string {
	return n.id
}

func (n *TriggerNode) Type() string {
	return n.nodeType
}

func (n *TriggerNode) Execute(_ context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error) {
	output := make(map[string]any, len(execCtx.TriggerData))
	for key, value := range execCtx.TriggerData {
		output[key] = value
	}

	return models.Succeeded(output), nil
}
