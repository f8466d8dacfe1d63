package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

const subscriptionColumns = `id, account_id, integration_id, provider, channel_id, cursor,
	scope_metadata, started_at, expires_at, created_at, updated_at`

// SubscriptionRepository is the PostgreSQL cursor store.
type SubscriptionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(db *sql.DB, logger *slog.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, logger: logger}
}

func (r *SubscriptionRepository) Save(ctx context.Context, subscription *models.WatchSubscription) error {
	now := time.Now().UTC()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = now
	}

	if subscription.StartedAt.IsZero() {
		subscription.StartedAt = now
	}

	subscription.UpdatedAt = now

	metadata, err := jsonParam(subscription.ScopeMetadata, "{}")
	if err != nil {
		return &persistence.SubscriptionError{Op: "Save", SubscriptionID: subscription.ID, Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO watch_subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			integration_id = EXCLUDED.integration_id,
			provider = EXCLUDED.provider,
			channel_id = EXCLUDED.channel_id,
			cursor = EXCLUDED.cursor,
			scope_metadata = EXCLUDED.scope_metadata,
			started_at = EXCLUDED.started_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`,
		subscription.ID, subscription.AccountID, subscription.IntegrationID, string(subscription.Provider),
		subscription.ChannelID, subscription.Cursor, metadata, subscription.StartedAt,
		subscription.ExpiresAt, subscription.CreatedAt, subscription.UpdatedAt,
	)
	if err != nil {
		return &persistence.SubscriptionError{Op: "Save", SubscriptionID: subscription.ID, Err: err}
	}

	return nil
}

func (r *SubscriptionRepository) ByID(ctx context.Context, id string) (*models.WatchSubscription, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM watch_subscriptions WHERE id = $1", id)

	subscription, err := scanSubscription(row)
	if err != nil {
		return nil, &persistence.SubscriptionError{Op: "ByID", SubscriptionID: id, Err: notFound(err, persistence.ErrSubscriptionNotFound)}
	}

	return subscription, nil
}

func (r *SubscriptionRepository) ByChannel(ctx context.Context, channelID string) (*models.WatchSubscription, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM watch_subscriptions WHERE channel_id = $1", channelID)

	subscription, err := scanSubscription(row)
	if err != nil {
		return nil, &persistence.SubscriptionError{Op: "ByChannel", ChannelID: channelID, Err: notFound(err, persistence.ErrSubscriptionNotFound)}
	}

	return subscription, nil
}

func (r *SubscriptionRepository) CurrentForScope(ctx context.Context, key models.ScopeKey) (*models.WatchSubscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM watch_subscriptions
		WHERE provider = $1 AND account_id = $2 AND integration_id = $3
		ORDER BY updated_at DESC
		LIMIT 1
	`, string(key.Provider), key.AccountID, key.IntegrationID)

	subscription, err := scanSubscription(row)
	if err != nil {
		return nil, &persistence.SubscriptionError{Op: "CurrentForScope", Err: notFound(err, persistence.ErrSubscriptionNotFound)}
	}

	return subscription, nil
}

func (r *SubscriptionRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.WatchSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+` FROM watch_subscriptions
		WHERE $1 = '' OR account_id = $1
		ORDER BY updated_at DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	subscriptions := make([]*models.WatchSubscription, 0)

	for rows.Next() {
		subscription, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}

		subscriptions = append(subscriptions, subscription)
	}

	return subscriptions, rows.Err()
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM watch_subscriptions WHERE id = $1", id)
	if err != nil {
		return &persistence.SubscriptionError{Op: "Delete", SubscriptionID: id, Err: err}
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return &persistence.SubscriptionError{Op: "Delete", SubscriptionID: id, Err: persistence.ErrSubscriptionNotFound}
	}

	return nil
}

// AdvanceCursor is a single conditional UPDATE. updated_at is not touched so
// a cursor move never changes which channel is authoritative for the scope.
func (r *SubscriptionRepository) AdvanceCursor(ctx context.Context, id, previous, next string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE watch_subscriptions SET cursor = $3 WHERE id = $1 AND cursor = $2",
		id, previous, next,
	)
	if err != nil {
		return &persistence.SubscriptionError{Op: "AdvanceCursor", SubscriptionID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.SubscriptionError{Op: "AdvanceCursor", SubscriptionID: id, Err: err}
	}

	if affected == 1 {
		return nil
	}

	var exists bool

	err = r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM watch_subscriptions WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return &persistence.SubscriptionError{Op: "AdvanceCursor", SubscriptionID: id, Err: err}
	}

	if !exists {
		return &persistence.SubscriptionError{Op: "AdvanceCursor", SubscriptionID: id, Err: persistence.ErrSubscriptionNotFound}
	}

	return &persistence.SubscriptionError{Op: "AdvanceCursor", SubscriptionID: id, Err: persistence.ErrCursorConflict}
}

func scanSubscription(row scanner) (*models.WatchSubscription, error) {
	var (
		subscription models.WatchSubscription
		provider     string
		metadata     []byte
		expiresAt    sql.NullTime
	)

	err := row.Scan(
		&subscription.ID, &subscription.AccountID, &subscription.IntegrationID, &provider,
		&subscription.ChannelID, &subscription.Cursor, &metadata, &subscription.StartedAt,
		&expiresAt, &subscription.CreatedAt, &subscription.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	subscription.Provider = models.Provider(provider)

	if expiresAt.Valid {
		subscription.ExpiresAt = &expiresAt.Time
	}

	if err := unmarshalJSON(metadata, &subscription.ScopeMetadata); err != nil {
		return nil, fmt.Errorf("failed to decode scope metadata: %w", err)
	}

	return &subscription, nil
}

// notFound maps sql.ErrNoRows to the repository sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}

	return err
}
