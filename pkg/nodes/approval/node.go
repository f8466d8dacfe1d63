// Package approval provides the human-in-the-loop node that pauses a run.
package approval

import (
	"context"
	"fmt"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/template"
)

// ApprovalNode pauses the run until an external resume.
type ApprovalNode struct {
	id        string
	message   string
	approvers []string
}

func NewApprovalNode(id string, config map[string]any) (*ApprovalNode, error) {
	node := &ApprovalNode{id: id}
	node.message, _ = config["message"].(string)

	if list, ok := config["approvers"].([]any); ok {
		for i, item := range list {
			approver, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("approver %d must be a string", i)
			}

			node.approvers = append(node.approvers, approver)
		}
	}

	return node, nil
}

func (n *ApprovalNode) ID() string {
	return n.id
}

func (n *ApprovalNode) Type() string {
	return models.NodeTypeApproval
}

func (n *ApprovalNode) Execute(_ context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error) {
	message := n.message
	if message != "" {
		rendered, err := template.RenderWithContext(message, &execCtx)
		if err != nil {
			return models.Failed(fmt.Sprintf("failed to render approval message: %v", err)), nil
		}

		message = fmt.Sprint(rendered)
	}

	result := models.Succeeded(map[string]any{
		"approval_requested": true,
		"message":            message,
		"approvers":          n.approvers,
	})
	result.PauseExecution = true

	return result, nil
}
