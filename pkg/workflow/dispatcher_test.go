package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/events"
	"github.com/chainreact/chainreact/pkg/mocks"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/persistence/file"
	"github.com/chainreact/chainreact/pkg/testutil"
	"github.com/chainreact/chainreact/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	result *workflow.RunResult
	err    error
	seen   []*models.ExecutionSession
}

func (s *stubRunner) Run(_ context.Context, session *models.ExecutionSession, _ *models.Workflow) (*workflow.RunResult, error) {
	s.seen = append(s.seen, session)

	return s.result, s.err
}

type failingExecutions struct {
	persistence.ExecutionRepository
}

func (failingExecutions) SaveSession(context.Context, *models.ExecutionSession) error {
	return errors.New("disk full")
}

func eventTypes(bus *mocks.MockEventBus) []events.EventType {
	var types []events.EventType

	for _, call := range bus.Calls {
		if call.Method == "Publish" {
			types = append(types, call.Arguments.Get(2).(interface{ GetType() events.EventType }).GetType())
		}
	}

	return types
}

func dispatchRequest() workflow.Request {
	trigger := testutil.CreateTestNode("start", testutil.WithTriggerNode())
	wf := testutil.CreateTestWorkflow([]*models.WorkflowNode{trigger}, nil)

	return workflow.Request{
		Workflow:    wf,
		TriggerNode: trigger,
		Source:      models.TriggerSourceManual,
		Input:       map[string]any{"k": "v"},
	}
}

func TestDispatcher_Completed(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	runner := &stubRunner{result: &workflow.RunResult{
		Status:      models.SessionCompleted,
		Executed:    []string{"start"},
		NodeOutputs: map[string]any{"start": map[string]any{"k": "v"}},
	}}

	d := workflow.NewDispatcher(store.Executions(), runner, bus, testLogger())
	req := dispatchRequest()

	session, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, models.ModeLive, session.Options.Mode)
	assert.Equal(t, req.Workflow.Owner, session.OwnerID)
	require.NotNil(t, session.CompletedAt)

	require.Len(t, runner.seen, 1)
	assert.Equal(t, models.SessionRunning, runner.seen[0].Status)

	stored, err := store.Executions().SessionByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, stored.Status)
	assert.Equal(t, "start", stored.TriggerNodeID)

	assert.Equal(t, []events.EventType{events.ExecutionStartedEvent, events.ExecutionCompletedEvent}, eventTypes(bus))
}

func TestDispatcher_FailedAndPausedRuns(t *testing.T) {
	tests := []struct {
		name   string
		result *workflow.RunResult
		status models.SessionStatus
		event  events.EventType
	}{
		{
			name: "failed node",
			result: &workflow.RunResult{
				Status:   models.SessionFailed,
				Executed: []string{"start", "send"},
				Failures: map[string]string{"send": "boom"},
			},
			status: models.SessionFailed,
			event:  events.ExecutionFailedEvent,
		},
		{
			name:   "paused",
			result: &workflow.RunResult{Status: models.SessionPaused, Executed: []string{"start", "approve"}, PausedAt: "approve"},
			status: models.SessionPaused,
			event:  events.ExecutionPausedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &mocks.MockEventBus{}
			bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

			d := workflow.NewDispatcher(file.NewPersistence(t.TempDir()).Executions(), &stubRunner{result: tt.result}, bus, testLogger())

			session, err := d.Dispatch(context.Background(), dispatchRequest())
			require.NoError(t, err)
			assert.Equal(t, tt.status, session.Status)
			assert.Equal(t, []events.EventType{events.ExecutionStartedEvent, tt.event}, eventTypes(bus))
		})
	}
}

func TestDispatcher_RunnerError(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	d := workflow.NewDispatcher(file.NewPersistence(t.TempDir()).Executions(), &stubRunner{err: workflow.ErrTriggerNodeNotFound}, bus, testLogger())

	session, err := d.Dispatch(context.Background(), dispatchRequest())
	require.ErrorIs(t, err, workflow.ErrTriggerNodeNotFound)
	assert.Equal(t, models.SessionFailed, session.Status)
	assert.Equal(t, []events.EventType{events.ExecutionStartedEvent, events.ExecutionFailedEvent}, eventTypes(bus))
}

func TestDispatcher_SessionCreateFailure(t *testing.T) {
	runner := &stubRunner{}
	d := workflow.NewDispatcher(failingExecutions{}, runner, nil, testLogger())

	session, err := d.Dispatch(context.Background(), dispatchRequest())
	require.Error(t, err)
	assert.Nil(t, session)
	assert.Empty(t, runner.seen)
}

func TestDispatcher_PublishErrorDoesNotFailRun(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	d := workflow.NewDispatcher(file.NewPersistence(t.TempDir()).Executions(),
		&stubRunner{result: &workflow.RunResult{Status: models.SessionCompleted}}, bus, testLogger())

	session, err := d.Dispatch(context.Background(), dispatchRequest())
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, session.Status)
}

func TestTriggerPayload(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	change := &models.Change{
		Provider:         models.ProviderGoogleDrive,
		ChangeType:       models.ChangeFolderCreated,
		ResourceIdentity: "folder-9",
		Scope: models.Scope{
			AccountID:     "acct-1",
			IntegrationID: "int-1",
			Params:        map[string]string{models.ScopeFolderID: "root-1"},
		},
		Item:      map[string]any{"name": "Reports"},
		Timestamp: &ts,
		IsFolder:  true,
	}
	sub := &models.WatchSubscription{ID: "sub-1", AccountID: "acct-1", IntegrationID: "int-1"}

	payload := workflow.TriggerPayload(change, sub)

	assert.Equal(t, "google-drive", payload["provider"])
	assert.Equal(t, "folder_created", payload["change_type"])
	assert.Equal(t, "folder-9", payload["resource_identity"])
	assert.Equal(t, "2024-05-01T09:00:00Z", payload["timestamp"])
	assert.Equal(t, "sub-1", payload["subscription_id"])
	assert.Equal(t, "root-1", payload["scope"].(map[string]any)["params"].(map[string]any)[models.ScopeFolderID])
}
