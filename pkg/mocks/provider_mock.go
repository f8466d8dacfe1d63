package mocks

import (
	"context"
	"time"

	"github.com/chainreact/chainreact/pkg/changes"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockActionInvoker is a mock implementation of protocol.ActionInvoker.
type MockActionInvoker struct {
	mock.Mock
}

func (m *MockActionInvoker) Invoke(ctx context.Context, call protocol.ActionCall) (map[string]any, error) {
	args := m.Called(ctx, call)

	output, _ := args.Get(0).(map[string]any)

	return output, args.Error(1)
}

// MockProviderAPI is a mock implementation of changes.ProviderAPI.
type MockProviderAPI struct {
	mock.Mock
}

func (m *MockProviderAPI) FetchChanges(ctx context.Context, subscription *models.WatchSubscription, cursor string, since time.Time) (*changes.ChangeBatch, error) {
	args := m.Called(ctx, subscription, cursor, since)

	batch, _ := args.Get(0).(*changes.ChangeBatch)

	return batch, args.Error(1)
}
