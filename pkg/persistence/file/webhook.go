package file

import (
	"context"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

const webhooksCollection = "webhooks"

// WebhookRepository stores outbound webhook subscriptions.
type WebhookRepository struct {
	store *store
}

func (wr *WebhookRepository) List(_ context.Context, ownerID string) ([]*models.WebhookSubscription, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	webhooks, err := loadAll[models.WebhookSubscription](wr.store, webhooksCollection)
	if err != nil {
		return nil, err
	}

	result := make([]*models.WebhookSubscription, 0, len(webhooks))

	for _, webhook := range webhooks {
		if ownerID == "" || webhook.OwnerID == ownerID {
			result = append(result, webhook)
		}
	}

	return result, nil
}

func (wr *WebhookRepository) ByID(_ context.Context, id string) (*models.WebhookSubscription, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	var webhook models.WebhookSubscription

	found, err := wr.store.read(webhooksCollection, id, &webhook)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrWebhookNotFound
	}

	return &webhook, nil
}

func (wr *WebhookRepository) Save(_ context.Context, webhook *models.WebhookSubscription) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	now := time.Now().UTC()
	if webhook.CreatedAt.IsZero() {
		webhook.CreatedAt = now
	}

	webhook.UpdatedAt = now

	return wr.store.write(webhooksCollection, webhook.ID, webhook)
}

func (wr *WebhookRepository) Delete(_ context.Context, id string) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	found, err := wr.store.remove(webhooksCollection, id)
	if err != nil {
		return err
	}

	if !found {
		return persistence.ErrWebhookNotFound
	}

	return nil
}

func (wr *WebhookRepository) ForEvent(ctx context.Context, eventType string) ([]*models.WebhookSubscription, error) {
	webhooks, err := wr.List(ctx, "")
	if err != nil {
		return nil, err
	}

	result := make([]*models.WebhookSubscription, 0, len(webhooks))

	for _, webhook := range webhooks {
		if webhook.Wants(eventType) {
			result = append(result, webhook)
		}
	}

	return result, nil
}
