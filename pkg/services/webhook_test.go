package services_test

import (
	"testing"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_CRUD(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	service := services.NewWebhook(newStore(t))

	created, err := service.Create(ctx, &models.WebhookSubscription{
		Name:       "ops",
		OwnerID:    "owner-1",
		EventTypes: []string{"execution.failed"},
		TargetURL:  "https://example.com/hook",
		IsActive:   true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	updated, err := service.Update(ctx, created.ID, &models.WebhookSubscription{
		Name:       "ops-all",
		EventTypes: []string{"*"},
		TargetURL:  "https://example.com/hook",
	})
	require.NoError(t, err)
	assert.Equal(t, "owner-1", updated.OwnerID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	listed, err := service.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "ops-all", listed[0].Name)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.Get(ctx, created.ID)
	assert.True(t, services.IsNotFoundError(err))
}

func TestWebhook_RejectsUnknownEventType(t *testing.T) {
	t.Parallel()

	_, err := services.NewWebhook(newStore(t)).Create(t.Context(), &models.WebhookSubscription{
		Name:       "bad",
		EventTypes: []string{"workflow.published"},
		TargetURL:  "https://example.com",
	})

	assert.True(t, services.IsValidationError(err))
}
