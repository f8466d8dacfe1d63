package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

const webhookColumns = `id, name, owner_id, event_types, target_url, secret_key, headers,
	is_active, created_at, updated_at`

// WebhookRepository stores outbound webhook subscriptions.
type WebhookRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWebhookRepository creates a new webhook repository.
func NewWebhookRepository(db *sql.DB, logger *slog.Logger) *WebhookRepository {
	return &WebhookRepository{db: db, logger: logger}
}

func (r *WebhookRepository) List(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error) {
	return r.query(ctx,
		"SELECT "+webhookColumns+" FROM webhook_subscriptions WHERE $1 = '' OR owner_id = $1 ORDER BY created_at",
		ownerID,
	)
}

func (r *WebhookRepository) ByID(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+webhookColumns+" FROM webhook_subscriptions WHERE id = $1", id)

	webhook, err := scanWebhook(row)
	if err != nil {
		return nil, notFound(err, persistence.ErrWebhookNotFound)
	}

	return webhook, nil
}

func (r *WebhookRepository) Save(ctx context.Context, webhook *models.WebhookSubscription) error {
	now := time.Now().UTC()
	if webhook.CreatedAt.IsZero() {
		webhook.CreatedAt = now
	}

	webhook.UpdatedAt = now

	eventTypes, err := jsonParam(webhook.EventTypes, "[]")
	if err != nil {
		return fmt.Errorf("failed to marshal event types: %w", err)
	}

	headers, err := jsonParam(webhook.Headers, "{}")
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO webhook_subscriptions (`+webhookColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			owner_id = EXCLUDED.owner_id,
			event_types = EXCLUDED.event_types,
			target_url = EXCLUDED.target_url,
			secret_key = EXCLUDED.secret_key,
			headers = EXCLUDED.headers,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`,
		webhook.ID, webhook.Name, webhook.OwnerID, eventTypes, webhook.TargetURL, webhook.SecretKey,
		headers, webhook.IsActive, webhook.CreatedAt, webhook.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save webhook %s: %w", webhook.ID, err)
	}

	return nil
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM webhook_subscriptions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook %s: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.ErrWebhookNotFound
	}

	return nil
}

// ForEvent narrows to active rows in SQL and leaves event type matching to the model.
func (r *WebhookRepository) ForEvent(ctx context.Context, eventType string) ([]*models.WebhookSubscription, error) {
	webhooks, err := r.query(ctx,
		"SELECT "+webhookColumns+" FROM webhook_subscriptions WHERE is_active ORDER BY created_at",
	)
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

func (r *WebhookRepository) query(ctx context.Context, query string, args ...any) ([]*models.WebhookSubscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	webhooks := make([]*models.WebhookSubscription, 0)

	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}

		webhooks = append(webhooks, webhook)
	}

	return webhooks, rows.Err()
}

func scanWebhook(row scanner) (*models.WebhookSubscription, error) {
	var (
		webhook             models.WebhookSubscription
		eventTypes, headers []byte
	)

	err := row.Scan(
		&webhook.ID, &webhook.Name, &webhook.OwnerID, &eventTypes, &webhook.TargetURL, &webhook.SecretKey,
		&headers, &webhook.IsActive, &webhook.CreatedAt, &webhook.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(eventTypes, &webhook.EventTypes); err != nil {
		return nil, fmt.Errorf("failed to decode event types: %w", err)
	}

	if err := unmarshalJSON(headers, &webhook.Headers); err != nil {
		return nil, fmt.Errorf("failed to decode headers: %w", err)
	}

	return &webhook, nil
}
