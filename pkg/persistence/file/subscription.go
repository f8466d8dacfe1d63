package file

import (
	"context"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

const subscriptionsCollection = "subscriptions"

// SubscriptionRepository is the file-backed cursor store.
type SubscriptionRepository struct {
	store *store
}

func (sr *SubscriptionRepository) Save(_ context.Context, subscription *models.WatchSubscription) error {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	now := time.Now().UTC()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = now
	}

	subscription.UpdatedAt = now

	if err := sr.store.write(subscriptionsCollection, subscription.ID, subscription); err != nil {
		return &persistence.SubscriptionError{Op: "Save", SubscriptionID: subscription.ID, Err: err}
	}

	return nil
}

func (sr *SubscriptionRepository) ByID(_ context.Context, id string) (*models.WatchSubscription, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	return sr.byIDLocked(id)
}

func (sr *SubscriptionRepository) byIDLocked(id string) (*models.WatchSubscription, error) {
	var subscription models.WatchSubscription

	found, err := sr.store.read(subscriptionsCollection, id, &subscription)
	if err != nil {
		return nil, &persistence.SubscriptionError{Op: "ByID", SubscriptionID: id, Err: err}
	}

	if !found {
		return nil, &persistence.SubscriptionError{Op: "ByID", SubscriptionID: id, Err: persistence.ErrSubscriptionNotFound}
	}

	return &subscription, nil
}

func (sr *SubscriptionRepository) ByChannel(_ context.Context, channelID string) (*models.WatchSubscription, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	subscriptions, err := loadAll[models.WatchSubscription](sr.store, subscriptionsCollection)
	if err != nil {
		return nil, &persistence.SubscriptionError{Op: "ByChannel", ChannelID: channelID, Err: err}
	}

	for _, subscription := range subscriptions {
		if subscription.ChannelID == channelID {
			return subscription, nil
		}
	}

	return nil, &persistence.SubscriptionError{Op: "ByChannel", ChannelID: channelID, Err: persistence.ErrSubscriptionNotFound}
}

func (sr *SubscriptionRepository) CurrentForScope(_ context.Context, key models.ScopeKey) (*models.WatchSubscription, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	subscriptions, err := loadAll[models.WatchSubscription](sr.store, subscriptionsCollection)
	if err != nil {
		return nil, &persistence.SubscriptionError{Op: "CurrentForScope", Err: err}
	}

	var current *models.WatchSubscription

	for _, subscription := range subscriptions {
		if subscription.Key() != key {
			continue
		}

		if current == nil || subscription.UpdatedAt.After(current.UpdatedAt) {
			current = subscription
		}
	}

	if current == nil {
		return nil, &persistence.SubscriptionError{Op: "CurrentForScope", Err: persistence.ErrSubscriptionNotFound}
	}

	return current, nil
}

func (sr *SubscriptionRepository) ListByAccount(_ context.Context, accountID string) ([]*models.WatchSubscription, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	subscriptions, err := loadAll[models.WatchSubscription](sr.store, subscriptionsCollection)
	if err != nil {
		return nil, err
	}

	result := make([]*models.WatchSubscription, 0, len(subscriptions))

	for _, subscription := range subscriptions {
		if accountID == "" || subscription.AccountID == accountID {
			result = append(result, subscription)
		}
	}

	return result, nil
}

func (sr *SubscriptionRepository) Delete(_ context.Context, id string) error {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	found, err := sr.store.remove(subscriptionsCollection, id)
	if err != nil {
		return &persistence.SubscriptionError{Op: "Delete", SubscriptionID: id, Err: err}
	}

	if !found {
		return &persistence.SubscriptionError{Op: "Delete", SubscriptionID: id, Err: persistence.ErrSubscriptionNotFound}
	}

	return nil
}

// AdvanceCursor swaps the cursor under the store lock. UpdatedAt is left alone
// so a cursor move never changes which channel is authoritative.
func (sr *SubscriptionRepository) AdvanceCursor(_ context.Context, id, previous, next string) error {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	subscription, err := sr.byIDLocked(id)
	if err != nil {
		return err
	}

	if subscription.Cursor != previous {
		return &persistence.SubscriptionError{Op: "AdvanceCursor", SubscriptionID: id, Err: persistence.ErrCursorConflict}
	}

	subscription.Cursor = next

	if err := sr.store.write(subscriptionsCollection, id, subscription); err != nil {
		return &persistence.SubscriptionError{Op: "AdvanceCursor", SubscriptionID: id, Err: err}
	}

	return nil
}
