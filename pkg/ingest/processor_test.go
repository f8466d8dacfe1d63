package ingest_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/changes"
	"github.com/chainreact/chainreact/pkg/dedup"
	"github.com/chainreact/chainreact/pkg/ingest"
	"github.com/chainreact/chainreact/pkg/matcher"
	"github.com/chainreact/chainreact/pkg/mocks"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/persistence/file"
	"github.com/chainreact/chainreact/pkg/registry"
	"github.com/chainreact/chainreact/pkg/testutil"
	"github.com/chainreact/chainreact/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type failingDispatcher struct {
	calls int
}

func (f *failingDispatcher) Dispatch(context.Context, workflow.Request) (*models.ExecutionSession, error) {
	f.calls++

	return nil, errors.New("session store unavailable")
}

// finalWriteFails lets a session start but rejects the write that records its
// terminal status.
type finalWriteFails struct {
	persistence.ExecutionRepository
}

func (f finalWriteFails) SaveSession(ctx context.Context, session *models.ExecutionSession) error {
	if session.CompletedAt != nil {
		return errors.New("executions table locked")
	}

	return f.ExecutionRepository.SaveSession(ctx, session)
}

type pipeline struct {
	store    *file.Persistence
	api      *mocks.MockProviderAPI
	dedup    *dedup.Deduplicator
	fetcher  *changes.Fetcher
	matcher  *matcher.Matcher
	workflow *models.Workflow
	runs     *workflow.Dispatcher
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	store := file.NewPersistence(t.TempDir())

	require.NoError(t, store.Subscriptions().Save(ctx, &models.WatchSubscription{
		ID:            "sub-1",
		AccountID:     "acct-1",
		IntegrationID: "int-1",
		Provider:      models.ProviderGoogleDrive,
		ChannelID:     "tok1",
		ScopeMetadata: map[string]any{models.ScopeFolderID: "root"},
		StartedAt:     now.Add(-time.Hour),
	}))

	wf := testutil.CreateTestWorkflow(
		[]*models.WorkflowNode{
			testutil.CreateTestNode("start",
				testutil.WithType(models.NodeTypeNewFolderInFolder),
				testutil.WithConfig(map[string]any{models.ScopeFolderID: "root"}),
			),
			testutil.CreateTestNode("announce", testutil.WithConfig(map[string]any{
				"message": "New folder {{$.trigger.item.name}}",
			})),
		},
		[]*models.Edge{testutil.Edge("start", "announce")},
		testutil.WithOwner("acct-1"),
	)
	require.NoError(t, store.Workflows().Save(ctx, wf))

	created := now.Add(-time.Minute)
	api := &mocks.MockProviderAPI{}
	api.On("FetchChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&changes.ChangeBatch{
		Changes: []models.RawChange{{
			ResourceID:   "folder-9",
			ResourceKind: models.ResourceFolder,
			Name:         "Reports",
			MimeType:     models.FolderMimeType,
			ParentIDs:    []string{"root"},
			CreatedAt:    &created,
			ModifiedAt:   &created,
		}},
		NextCursor: "c2",
	}, nil)

	reg := registry.NewRegistry(testLogger())
	reg.RegisterDefaultNodes(testLogger(), nil)

	executor := workflow.NewExecutor(reg, store.Executions(), nil, testLogger())

	return &pipeline{
		store:    store,
		api:      api,
		dedup:    dedup.NewDeduplicator(dedup.NewMemoryStore(dedup.DefaultWindow, dedup.DefaultRetention, 0), testLogger()),
		fetcher:  changes.NewFetcher(store.Subscriptions(), api, testLogger()),
		matcher:  matcher.NewMatcher(store.Workflows(), testLogger()),
		workflow: wf,
		runs:     workflow.NewDispatcher(store.Executions(), executor, nil, testLogger()),
	}
}

func (p *pipeline) processor(dispatcher ingest.Dispatcher) *ingest.Processor {
	return ingest.NewProcessor(p.fetcher, changes.NewClassifier(), p.matcher, p.dedup, dispatcher, nil, testLogger())
}

func notification(channel string) models.PushNotification {
	return models.PushNotification{
		Provider:      models.ProviderGoogleDrive,
		ChannelID:     channel,
		ResourceState: "change",
		ReceivedAt:    time.Now().UTC(),
	}
}

func TestProcessor_FolderCreatedDispatchesOnce(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	processor := p.processor(p.runs)

	report, err := processor.HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Dispatched)
	require.Len(t, report.Sessions, 1)

	session, err := p.store.Executions().SessionByID(ctx, report.Sessions[0])
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, "folder_created", session.InputData["change_type"])

	steps, err := p.store.Executions().Steps(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "New folder Reports", steps[1].Output["message"])

	sub, err := p.store.Subscriptions().ByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "c2", sub.Cursor)

	again, err := processor.HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)

	assert.Equal(t, 1, again.Matched)
	assert.Equal(t, 1, again.Deduped)
	assert.Equal(t, 0, again.Dispatched)
}

func TestProcessor_ExportsReportCounters(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	registry := prometheus.NewRegistry()
	metrics, err := ingest.NewMetrics(registry)
	require.NoError(t, err)

	processor := p.processor(p.runs).WithMetrics(metrics)

	_, err = processor.HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)
	_, err = processor.HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)

	expected := `
# HELP chainreact_ingest_changes_total Changes and matches seen by the pipeline, by report category.
# TYPE chainreact_ingest_changes_total counter
chainreact_ingest_changes_total{category="accepted"} 1
chainreact_ingest_changes_total{category="classified"} 2
chainreact_ingest_changes_total{category="deduped"} 1
chainreact_ingest_changes_total{category="dispatched"} 1
chainreact_ingest_changes_total{category="fetched"} 2
chainreact_ingest_changes_total{category="matched"} 2
`
	assert.NoError(t, promtestutil.GatherAndCompare(registry, strings.NewReader(expected), "chainreact_ingest_changes_total"))
}

func TestProcessor_StaleChannel(t *testing.T) {
	p := newPipeline(t)
	dispatcher := &failingDispatcher{}

	report, err := p.processor(dispatcher).HandleNotification(context.Background(), notification("tok-old"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stale)
	assert.Zero(t, report.Fetched)
	assert.Zero(t, dispatcher.calls)
	p.api.AssertNotCalled(t, "FetchChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessor_SyncHandshake(t *testing.T) {
	p := newPipeline(t)

	n := notification("tok1")
	n.ResourceState = "sync"

	report, err := p.processor(p.runs).HandleNotification(context.Background(), n)
	require.NoError(t, err)
	assert.True(t, report.Handshake)
	p.api.AssertNotCalled(t, "FetchChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessor_DispatchFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	failing := &failingDispatcher{}

	report, err := p.processor(failing).HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 1, report.DispatchFailed)
	assert.Equal(t, 1, failing.calls)

	retry, err := p.processor(p.runs).HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Dispatched, "the redelivered change is accepted after rollback")
}

func TestProcessor_FailedFinalSaveKeepsDedupRecord(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	reg := registry.NewRegistry(testLogger())
	reg.RegisterDefaultNodes(testLogger(), nil)
	executions := finalWriteFails{ExecutionRepository: p.store.Executions()}
	runs := workflow.NewDispatcher(executions, workflow.NewExecutor(reg, p.store.Executions(), nil, testLogger()), nil, testLogger())
	processor := p.processor(runs)

	report, err := processor.HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 1, report.DispatchFailed)
	require.Len(t, report.Sessions, 1)

	again, err := processor.HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)
	assert.Equal(t, 1, again.Deduped)
	assert.Zero(t, again.Accepted)

	sessions, err := p.store.Executions().SessionsByWorkflow(ctx, p.workflow.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	steps, err := p.store.Executions().Steps(ctx, sessions[0].ID)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestProcessor_FetchErrorSurfaces(t *testing.T) {
	p := newPipeline(t)

	api := &mocks.MockProviderAPI{}
	api.On("FetchChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &changes.ProviderError{Provider: models.ProviderGoogleDrive, Op: "changes.list", StatusCode: 503, Transient: true, Err: errors.New("unavailable")})

	fetcher := changes.NewFetcher(p.store.Subscriptions(), api, testLogger())
	processor := ingest.NewProcessor(fetcher, changes.NewClassifier(), p.matcher, p.dedup, p.runs, nil, testLogger())

	_, err := processor.HandleNotification(context.Background(), notification("tok1"))
	require.Error(t, err)
	assert.True(t, changes.IsTransient(err))
}

func TestProcessor_UnmatchedChange(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	p.workflow.Nodes[0].Config = map[string]any{models.ScopeFolderID: "elsewhere"}
	require.NoError(t, p.store.Workflows().Save(ctx, p.workflow))

	report, err := p.processor(p.runs).HandleNotification(ctx, notification("tok1"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unmatched)
	assert.Zero(t, report.Dispatched)
}
