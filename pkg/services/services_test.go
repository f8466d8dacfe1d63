package services_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence/file"
	"github.com/chainreact/chainreact/pkg/registry"
	"github.com/chainreact/chainreact/pkg/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newRegistry() *registry.Registry {
	logger := quietLogger()
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(logger, nil)

	return reg
}

func newStore(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

// manualWorkflow is start(manual) -> log.
func manualWorkflow(opts ...func(*models.Workflow)) *models.Workflow {
	wf := testutil.CreateTestWorkflow(
		[]*models.WorkflowNode{
			testutil.CreateTestNode("start", testutil.WithTriggerNode()),
			testutil.CreateTestNode("log"),
		},
		[]*models.Edge{testutil.Edge("start", "log")},
		opts...,
	)
	wf.Name = "Manual workflow"

	return wf
}
