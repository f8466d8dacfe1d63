package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/chainreact/chainreact/pkg/eventbus"
	"github.com/chainreact/chainreact/pkg/ingest"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence/file"
	"github.com/chainreact/chainreact/pkg/registry"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/chainreact/chainreact/pkg/testutil"
	"github.com/chainreact/chainreact/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence, *registry.Registry) {
	t.Helper()

	logger := testLogger()
	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(logger, nil)

	executor := workflow.NewExecutor(reg, store.Executions(), nil, logger)
	dispatcher := workflow.NewDispatcher(store.Executions(), executor, nil, logger)

	api := NewAPI(logger, store, reg, dispatcher, ingest.NewBusSink(eventbus.NopPublisher{}, logger))

	return api.App(), store, reg
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _, _ := setupTestApp(t)

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ChainReact API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	app, _, _ := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz"} {
		status, body := get(t, app, path)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Equal(t, "OK", body, path)
	}
}

func TestAPI_Metrics(t *testing.T) {
	app, _, _ := setupTestApp(t)

	status, _ := get(t, app, "/metrics")
	assert.Equal(t, http.StatusNotFound, status)

	metrics := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "chainreact_test_total"})
	metrics.MustRegister(counter)
	counter.Inc()

	logger := testLogger()
	store := file.NewPersistence(t.TempDir())
	api := NewAPI(logger, store, registry.NewRegistry(logger), nil, ingest.NewBusSink(eventbus.NopPublisher{}, logger)).
		WithMetrics(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))

	status, body := get(t, api.App(), "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "chainreact_test_total 1")
}

func TestAPI_RoutesMountedUnderVersion(t *testing.T) {
	app, _, _ := setupTestApp(t)

	status, body := get(t, app, "/api/v1/workflows")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"data"`)

	status, _ = get(t, app, "/workflows")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_NotificationQueuedOnBus(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/google-drive", bytes.NewReader(nil))
	req.Header.Set("X-Goog-Channel-ID", "channel-1")
	req.Header.Set("X-Goog-Resource-State", "change")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestValidateWorkflows(t *testing.T) {
	ctx := context.Background()
	_, store, reg := setupTestApp(t)

	good := testutil.CreateTestWorkflow(
		[]*models.WorkflowNode{
			testutil.CreateTestNode("start", testutil.WithTriggerNode()),
			testutil.CreateTestNode("log"),
		},
		[]*models.Edge{testutil.Edge("start", "log")},
	)
	require.NoError(t, store.Workflows().Save(ctx, good))

	svc := services.NewWorkflow(store, reg, testLogger())

	var out bytes.Buffer
	require.NoError(t, validateWorkflows(ctx, svc, &out))
	assert.Contains(t, out.String(), "1 valid, 0 invalid")

	broken := testutil.CreateTestWorkflow(
		[]*models.WorkflowNode{testutil.CreateTestNode("log")},
		nil,
	)
	require.NoError(t, store.Workflows().Save(ctx, broken))

	out.Reset()
	err := validateWorkflows(ctx, svc, &out)
	require.ErrorIs(t, err, ErrInvalidWorkflows)
	assert.Contains(t, out.String(), "INVALID")
	assert.Contains(t, out.String(), "1 valid, 1 invalid")
}
