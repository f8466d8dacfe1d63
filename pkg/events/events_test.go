package events

import (
	"encoding/json"
	"testing"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	assert.Equal(t, NotificationReceivedEvent, NotificationReceived{}.GetType())
	assert.Equal(t, ExecutionStartedEvent, ExecutionStarted{}.GetType())
	assert.Equal(t, ExecutionCompletedEvent, ExecutionCompleted{}.GetType())
	assert.Equal(t, ExecutionFailedEvent, ExecutionFailed{}.GetType())
	assert.Equal(t, ExecutionPausedEvent, ExecutionPaused{}.GetType())
	assert.Len(t, LifecycleEventTypes(), 4)
}

func TestExecutionFailed_JSON(t *testing.T) {
	original := &ExecutionFailed{
		BaseEvent:     NewBaseEvent(ExecutionFailedEvent, "wf-1"),
		ExecutionID:   "exec-1",
		Status:        string(models.SessionFailed),
		Error:         ExecutionError{NodeID: "send", Message: "quota exceeded"},
		NodesExecuted: 2,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"execution.failed"`)
	assert.Contains(t, string(data), `"node_id":"send"`)

	var decoded ExecutionFailed
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.ExecutionID, decoded.ExecutionID)
	assert.Equal(t, original.Error, decoded.Error)
	assert.Equal(t, "wf-1", decoded.WorkflowID)
}

func TestNotificationReceived_JSON(t *testing.T) {
	original := NotificationReceived{
		BaseEvent: NewBaseEvent(NotificationReceivedEvent, ""),
		Notification: models.PushNotification{
			Provider:      models.ProviderGoogleDrive,
			ChannelID:     "chan-1",
			ResourceState: "change",
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded NotificationReceived
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "chan-1", decoded.Notification.ChannelID)
	assert.NotEmpty(t, decoded.ID)
}
