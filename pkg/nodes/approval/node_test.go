package approval

import (
	"context"
	"testing"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalNode_Pauses(t *testing.T) {
	node, err := NewApprovalNode("approve", map[string]any{
		"message":   "Approve {{.trigger.item.name}}?",
		"approvers": []any{"ops@example.com"},
	})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		TriggerData: map[string]any{"item": map[string]any{"name": "budget.xlsx"}},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.PauseExecution)
	assert.Equal(t, "Approve budget.xlsx?", result.Output["message"])
	assert.Equal(t, []string{"ops@example.com"}, result.Output["approvers"])
}

func TestNewApprovalNode_RejectsBadApprovers(t *testing.T) {
	_, err := NewApprovalNode("approve", map[string]any{"approvers": []any{42}})
	assert.Error(t, err)
}
