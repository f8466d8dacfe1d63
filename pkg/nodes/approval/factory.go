package approval

import (
	"context"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
)

// ApprovalNodeFactory creates ApprovalNode instances.
type ApprovalNodeFactory struct{}

func (f *ApprovalNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewApprovalNode(id, config)
}

// ID returns the factory ID.
func (f *ApprovalNodeFactory) ID() string {
	return models.NodeTypeApproval
}

func (f *ApprovalNodeFactory) Name() string {
	return "Approval"
}

func (f *ApprovalNodeFactory) Description() string {
	return "Pauses the run and waits for a person to approve before continuing"
}

func (f *ApprovalNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message":   map[string]any{"type": "string"},
			"approvers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}

// NewApprovalNodeFactory creates a new factory instance.
func NewApprovalNodeFactory() protocol.NodeFactory {
	return &ApprovalNodeFactory{}
}
