package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/chainreact/chainreact/pkg/testutil"
	"github.com/chainreact/chainreact/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDispatcher struct {
	requests []workflow.Request
	err      error
}

func (s *stubDispatcher) Dispatch(_ context.Context, req workflow.Request) (*models.ExecutionSession, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}

	return &models.ExecutionSession{ID: "session-1", WorkflowID: req.Workflow.ID, Status: models.SessionCompleted}, nil
}

func TestExecution_Execute(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := newStore(t)

	wf := testutil.CreateTestWorkflow(
		[]*models.WorkflowNode{
			testutil.CreateTestNode("tick", testutil.WithType(models.NodeTypeScheduleTrigger),
				testutil.WithConfig(map[string]any{"cron": "@daily"})),
			testutil.CreateTestNode("start", testutil.WithTriggerNode()),
			testutil.CreateTestNode("log"),
		},
		[]*models.Edge{testutil.Edge("tick", "log"), testutil.Edge("start", "log")},
	)
	require.NoError(t, store.Workflows().Save(ctx, wf))

	dispatcher := &stubDispatcher{}
	service := services.NewExecution(store, dispatcher, quietLogger())

	session, err := service.Execute(ctx, wf.ID, services.ExecuteRequest{
		Input:   map[string]any{"name": "Ada"},
		Options: models.ExecutionOptions{Mode: models.ModeIntercept},
	})
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID)

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "start", req.TriggerNode.ID, "the manual trigger wins over earlier triggers")
	assert.Equal(t, models.TriggerSourceManual, req.Source)
	assert.Equal(t, models.ModeIntercept, req.Options.Mode)
	assert.Equal(t, "Ada", req.Input["name"])

	_, err = service.Execute(ctx, wf.ID, services.ExecuteRequest{TriggerNodeID: "tick"})
	require.NoError(t, err)
	assert.Equal(t, "tick", dispatcher.requests[1].TriggerNode.ID)
	assert.NotNil(t, dispatcher.requests[1].Input)
}

func TestExecution_ExecuteErrors(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := newStore(t)

	wf := manualWorkflow()
	require.NoError(t, store.Workflows().Save(ctx, wf))

	noTrigger := testutil.CreateTestWorkflow([]*models.WorkflowNode{testutil.CreateTestNode("log")}, nil)
	require.NoError(t, store.Workflows().Save(ctx, noTrigger))

	service := services.NewExecution(store, &stubDispatcher{}, quietLogger())

	_, err := service.Execute(ctx, "missing", services.ExecuteRequest{})
	assert.True(t, services.IsNotFoundError(err))

	_, err = service.Execute(ctx, wf.ID, services.ExecuteRequest{Options: models.ExecutionOptions{Mode: "dry"}})
	assert.True(t, services.IsValidationError(err))

	_, err = service.Execute(ctx, wf.ID, services.ExecuteRequest{TriggerNodeID: "log"})
	assert.True(t, services.IsValidationError(err))

	_, err = service.Execute(ctx, noTrigger.ID, services.ExecuteRequest{})
	assert.ErrorIs(t, err, services.ErrTriggerNodeRequired)

	failing := services.NewExecution(store, &stubDispatcher{err: errors.New("boom")}, quietLogger())
	_, err = failing.Execute(ctx, wf.ID, services.ExecuteRequest{})
	assert.ErrorContains(t, err, "boom")
}

func TestExecution_History(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := newStore(t)
	wf := manualWorkflow()
	require.NoError(t, store.Workflows().Save(ctx, wf))

	session := &models.ExecutionSession{
		ID:         "11111111-1111-1111-1111-111111111111",
		WorkflowID: wf.ID,
		Status:     models.SessionCompleted,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Executions().SaveSession(ctx, session))
	require.NoError(t, store.Executions().RecordStep(ctx, models.StepStart{SessionID: session.ID, NodeID: "start", NodeType: models.NodeTypeManualTrigger}))

	service := services.NewExecution(store, &stubDispatcher{}, quietLogger())

	got, err := service.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)

	steps, err := service.Steps(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "start", steps[0].NodeID)

	sessions, err := service.ListByWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	_, err = service.Get(ctx, "22222222-2222-2222-2222-222222222222")
	assert.True(t, services.IsNotFoundError(err))

	_, err = service.ListByWorkflow(ctx, "nope")
	assert.True(t, services.IsNotFoundError(err))
}
