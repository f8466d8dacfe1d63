package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/chainreact/chainreact/pkg/events"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/google/uuid"
)

// Webhook manages outbound webhook subscriptions.
type Webhook struct {
	persistence persistence.Persistence
}

func NewWebhook(persistence persistence.Persistence) *Webhook {
	return &Webhook{persistence: persistence}
}

func (w *Webhook) List(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error) {
	webhooks, err := w.persistence.Webhooks().List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	return webhooks, nil
}

func (w *Webhook) Get(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	webhook, err := w.persistence.Webhooks().ByID(ctx, id)
	if err != nil {
		return nil, lookupError("GetWebhook", "webhook not found", err)
	}

	return webhook, nil
}

func (w *Webhook) Create(ctx context.Context, webhook *models.WebhookSubscription) (*models.WebhookSubscription, error) {
	if err := validateEventTypes("CreateWebhook", webhook.EventTypes); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	webhook.ID = uuid.NewString()
	webhook.CreatedAt = now
	webhook.UpdatedAt = now

	if err := w.persistence.Webhooks().Save(ctx, webhook); err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}

	return webhook, nil
}

func (w *Webhook) Update(ctx context.Context, id string, webhook *models.WebhookSubscription) (*models.WebhookSubscription, error) {
	existing, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validateEventTypes("UpdateWebhook", webhook.EventTypes); err != nil {
		return nil, err
	}

	webhook.ID = id
	webhook.CreatedAt = existing.CreatedAt
	webhook.UpdatedAt = time.Now().UTC()

	if webhook.OwnerID == "" {
		webhook.OwnerID = existing.OwnerID
	}

	if err := w.persistence.Webhooks().Save(ctx, webhook); err != nil {
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}

	return webhook, nil
}

func (w *Webhook) Delete(ctx context.Context, id string) error {
	if err := w.persistence.Webhooks().Delete(ctx, id); err != nil {
		return lookupError("DeleteWebhook", "webhook not found", err)
	}

	return nil
}

func validateEventTypes(op string, eventTypes []string) error {
	known := events.LifecycleEventTypes()

	for _, eventType := range eventTypes {
		if eventType == "*" || slices.Contains(known, events.EventType(eventType)) {
			continue
		}

		return NewValidationError(op, fmt.Sprintf("unknown event type '%s'", eventType), ErrInvalidRequest)
	}

	return nil
}
