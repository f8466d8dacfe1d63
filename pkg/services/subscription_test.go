package services_test

import (
	"testing"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscription_Register(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := newStore(t)
	service := services.NewSubscription(store, quietLogger())

	req := services.RegisterWatchRequest{
		AccountID:     "acct-1",
		IntegrationID: "int-1",
		Provider:      models.ProviderGoogleDrive,
		ScopeMetadata: map[string]any{models.ScopeFolderID: "root"},
	}

	first, err := service.Register(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ChannelID)
	assert.Empty(t, first.Cursor)
	assert.False(t, first.StartedAt.IsZero())

	second, err := service.Register(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ChannelID, second.ChannelID)

	current, err := store.Subscriptions().CurrentForScope(ctx, second.Key())
	require.NoError(t, err)
	assert.Equal(t, second.ChannelID, current.ChannelID, "the newest watch is authoritative")

	listed, err := service.ListByAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	require.NoError(t, service.Delete(ctx, first.ID))

	_, err = service.Get(ctx, first.ID)
	assert.True(t, services.IsNotFoundError(err))
}

func TestSubscription_RegisterValidation(t *testing.T) {
	t.Parallel()

	service := services.NewSubscription(newStore(t), quietLogger())

	tests := []struct {
		name string
		req  services.RegisterWatchRequest
	}{
		{"missing account", services.RegisterWatchRequest{IntegrationID: "i", Provider: models.ProviderGoogleDrive}},
		{"missing integration", services.RegisterWatchRequest{AccountID: "a", Provider: models.ProviderGoogleDrive}},
		{"unwatchable provider", services.RegisterWatchRequest{AccountID: "a", IntegrationID: "i", Provider: models.ProviderSlack}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(t.Context(), tt.req)
			assert.True(t, services.IsValidationError(err))
		})
	}

	_, err := service.ListByAccount(t.Context(), "")
	assert.True(t, services.IsValidationError(err))
}
