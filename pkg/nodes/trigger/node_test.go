package trigger

import (
	"context"
	"testing"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerNode_PassesPayloadThrough(t *testing.T) {
	node := NewTriggerNode("trigger", models.NodeTypeNewFolderInFolder)
	payload := map[string]any{"change_type": "folder_created", "resource_id": "folder-9"}

	result, err := node.Execute(context.Background(), models.ExecutionContext{TriggerData: payload})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, payload, result.Output)

	result.Output["extra"] = true
	assert.NotContains(t, payload, "extra")
}

func TestNewTriggerNodeFactories(t *testing.T) {
	factories := NewTriggerNodeFactories()

	ids := make(map[string]bool)
	for _, factory := range factories {
		ids[factory.ID()] = true

		kind, ok := models.LookupNodeKind(factory.ID())
		require.True(t, ok)
		assert.True(t, kind.Category.Capabilities().IsTrigger)
		assert.NotEmpty(t, factory.Description())
		assert.Equal(t, "object", factory.Schema()["type"])
	}

	assert.True(t, ids[models.NodeTypeNewFolderInFolder])
	assert.True(t, ids[models.NodeTypeScheduleTrigger])
	assert.False(t, ids[models.NodeTypeLog])

	assert.Equal(t, "New Folder In Folder", (&TriggerNodeFactory{kind: models.NodeKind{Type: models.NodeTypeNewFolderInFolder}}).Name())
}
