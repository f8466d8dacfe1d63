package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/google/uuid"
)

var watchableProviders = []models.Provider{
	models.ProviderGoogleDrive,
	models.ProviderGoogleCalendar,
	models.ProviderGoogleSheets,
}

// RegisterWatchRequest describes a provider watch to open.
type RegisterWatchRequest struct {
	AccountID     string
	IntegrationID string
	Provider      models.Provider
	ScopeMetadata map[string]any
	ExpiresAt     *time.Time
}

// Subscription registers provider watches in the cursor store.
type Subscription struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	now         func() time.Time
}

func NewSubscription(persistence persistence.Persistence, logger *slog.Logger) *Subscription {
	return &Subscription{
		persistence: persistence,
		logger:      logger.With("module", "subscription_service"),
		now:         time.Now,
	}
}

// Register opens a watch. The new record gets a fresh channel id, starts now
// with an empty cursor and becomes the authoritative channel of its scope.
func (s *Subscription) Register(ctx context.Context, req RegisterWatchRequest) (*models.WatchSubscription, error) {
	const op = "RegisterWatch"

	if strings.TrimSpace(req.AccountID) == "" || strings.TrimSpace(req.IntegrationID) == "" {
		return nil, NewValidationError(op, "account_id and integration_id are required", ErrInvalidRequest)
	}

	if !slices.Contains(watchableProviders, req.Provider) {
		return nil, NewValidationError(op, fmt.Sprintf("provider '%s' cannot be watched", req.Provider), ErrInvalidRequest)
	}

	now := s.now().UTC()
	subscription := &models.WatchSubscription{
		ID:            uuid.NewString(),
		AccountID:     req.AccountID,
		IntegrationID: req.IntegrationID,
		Provider:      req.Provider,
		ChannelID:     uuid.NewString(),
		ScopeMetadata: req.ScopeMetadata,
		StartedAt:     now,
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.persistence.Subscriptions().Save(ctx, subscription); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "Watch registered",
		"subscription_id", subscription.ID,
		"channel_id", subscription.ChannelID,
		"scope", subscription.Key().String(),
	)

	return subscription, nil
}

// Get returns one subscription.
func (s *Subscription) Get(ctx context.Context, id string) (*models.WatchSubscription, error) {
	subscription, err := s.persistence.Subscriptions().ByID(ctx, id)
	if err != nil {
		return nil, lookupError("GetSubscription", "subscription not found", err)
	}

	return subscription, nil
}

// ListByAccount returns the watches of an account.
func (s *Subscription) ListByAccount(ctx context.Context, accountID string) ([]*models.WatchSubscription, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, NewValidationError("ListSubscriptions", "account_id is required", ErrInvalidRequest)
	}

	subscriptions, err := s.persistence.Subscriptions().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subscriptions, nil
}

// Delete removes a watch. Notifications on its channel become stale.
func (s *Subscription) Delete(ctx context.Context, id string) error {
	if err := s.persistence.Subscriptions().Delete(ctx, id); err != nil {
		return lookupError("DeleteSubscription", "subscription not found", err)
	}

	return nil
}
