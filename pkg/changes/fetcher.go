// Package changes turns provider push notifications into classified changes:
// it resolves the notifying channel to its watch, pulls the incremental change
// feed behind the stored cursor and labels every raw change.
package changes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

// ChangeBatch is one page of a provider incremental-changes feed.
type ChangeBatch struct {
	Changes    []models.RawChange `json:"changes"`
	NextCursor string             `json:"next_cursor"`
}

// ProviderAPI reads the incremental change feed of a watch. An empty cursor
// asks for changes since the given time.
type ProviderAPI interface {
	FetchChanges(ctx context.Context, subscription *models.WatchSubscription, cursor string, since time.Time) (*ChangeBatch, error)
}

// Fetcher reads change batches and keeps the cursor store up to date.
type Fetcher struct {
	subscriptions persistence.SubscriptionRepository
	api           ProviderAPI
	now           func() time.Time
	logger        *slog.Logger
}

// NewFetcher creates a fetcher that resolves channels through subscriptions and
// pulls change pages from api.
func NewFetcher(subscriptions persistence.SubscriptionRepository, api ProviderAPI, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		subscriptions: subscriptions,
		api:           api,
		now:           time.Now,
		logger:        logger.With("module", "change_fetcher"),
	}
}

// Resolve maps a notification to its watch subscription. It returns
// ErrStaleChannel when the channel is unknown or has been superseded.
func (f *Fetcher) Resolve(ctx context.Context, notification models.PushNotification) (*models.WatchSubscription, error) {
	subscription, err := f.subscriptions.ByChannel(ctx, notification.ChannelID)
	if persistence.IsSubscriptionNotFound(err) {
		return nil, fmt.Errorf("channel %s: %w", notification.ChannelID, ErrStaleChannel)
	}

	if err != nil {
		return nil, err
	}

	if notification.Provider != "" && notification.Provider != subscription.Provider {
		return nil, fmt.Errorf("channel %s belongs to %s: %w", notification.ChannelID, subscription.Provider, ErrStaleChannel)
	}

	current, err := f.subscriptions.CurrentForScope(ctx, subscription.Key())
	if err != nil {
		return nil, err
	}

	if current.ID != subscription.ID {
		return nil, fmt.Errorf("channel %s superseded by %s: %w", notification.ChannelID, current.ChannelID, ErrStaleChannel)
	}

	return current, nil
}

// Fetch pulls the changes behind the subscription's cursor and advances it.
// The cursor moves as soon as the batch is read, whatever happens to the
// changes afterwards.
func (f *Fetcher) Fetch(ctx context.Context, subscription *models.WatchSubscription) (*ChangeBatch, error) {
	batch, err := f.api.FetchChanges(ctx, subscription, subscription.Cursor, f.since(subscription))
	if errors.Is(err, ErrCursorExpired) && subscription.Cursor != "" {
		f.logger.WarnContext(ctx, "Cursor expired, restarting sync from now",
			"subscription_id", subscription.ID,
			"scope", subscription.Key().String(),
		)

		batch, err = f.api.FetchChanges(ctx, subscription, "", f.now().UTC())
	}

	if err != nil {
		return nil, fmt.Errorf("fetch changes for %s: %w", subscription.Key(), err)
	}

	if batch.NextCursor != "" && batch.NextCursor != subscription.Cursor {
		f.advance(ctx, subscription, batch.NextCursor)
	}

	f.logger.DebugContext(ctx, "Fetched changes",
		"subscription_id", subscription.ID,
		"changes", len(batch.Changes),
	)

	return batch, nil
}

// since bounds a first sync: the watch start, or now when it was never recorded.
func (f *Fetcher) since(subscription *models.WatchSubscription) time.Time {
	if subscription.Cursor != "" {
		return time.Time{}
	}

	if !subscription.StartedAt.IsZero() {
		return subscription.StartedAt
	}

	return f.now().UTC()
}

func (f *Fetcher) advance(ctx context.Context, subscription *models.WatchSubscription, next string) {
	err := f.subscriptions.AdvanceCursor(ctx, subscription.ID, subscription.Cursor, next)

	switch {
	case err == nil:
		subscription.Cursor = next
	case persistence.IsCursorConflict(err):
		f.logger.WarnContext(ctx, "Cursor moved concurrently, keeping the other writer's value",
			"subscription_id", subscription.ID,
		)
	default:
		f.logger.ErrorContext(ctx, "Failed to advance cursor",
			"subscription_id", subscription.ID,
			"error", err,
		)
	}
}
