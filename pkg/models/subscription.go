package models

import (
	"fmt"
	"time"
)

// Provider identifies an external service that emits change notifications.
type Provider string

const (
	ProviderGoogleDrive    Provider = "google-drive"
	ProviderGoogleCalendar Provider = "google-calendar"
	ProviderGoogleSheets   Provider = "google-sheets"
	ProviderGmail          Provider = "gmail"
	ProviderSlack          Provider = "slack"
)

// Scope metadata keys understood by the classifier and the matcher.
const (
	ScopeFolderID      = "folder_id"
	ScopeCalendarID    = "calendar_id"
	ScopeSpreadsheetID = "spreadsheet_id"
	ScopeSheetName     = "sheet_name"
)

// ScopeKey identifies the (account, integration, provider) tuple a watch belongs to.
type ScopeKey struct {
	AccountID     string   `json:"account_id"`
	IntegrationID string   `json:"integration_id"`
	Provider      Provider `json:"provider"`
}

func (k ScopeKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Provider, k.AccountID, k.IntegrationID)
}

// WatchSubscription is the cursor store record of one provider watch.
type WatchSubscription struct {
	ID            string         `json:"id"`
	AccountID     string         `json:"account_id"     validate:"required"`
	IntegrationID string         `json:"integration_id" validate:"required"`
	Provider      Provider       `json:"provider"       validate:"required"`
	ChannelID     string         `json:"channel_id"`
	Cursor        string         `json:"cursor,omitempty"`
	ScopeMetadata map[string]any `json:"scope_metadata,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Key returns the scope key of the subscription.
func (s *WatchSubscription) Key() ScopeKey {
	return ScopeKey{AccountID: s.AccountID, IntegrationID: s.IntegrationID, Provider: s.Provider}
}

// Metadata returns a scope metadata value rendered as a string, or "".
func (s *WatchSubscription) Metadata(key string) string {
	if s.ScopeMetadata == nil {
		return ""
	}

	switch value := s.ScopeMetadata[key].(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

// Scope builds the change scope described by the subscription.
func (s *WatchSubscription) Scope() Scope {
	params := make(map[string]string, len(s.ScopeMetadata))

	for key := range s.ScopeMetadata {
		if value := s.Metadata(key); value != "" {
			params[key] = value
		}
	}

	return Scope{
		AccountID:     s.AccountID,
		IntegrationID: s.IntegrationID,
		Provider:      s.Provider,
		Params:        params,
	}
}

// PushNotification is an inbound provider push delivery.
type PushNotification struct {
	Provider      Provider       `json:"provider"`
	ChannelID     string         `json:"channel_id"`
	ResourceState string         `json:"resource_state,omitempty"`
	MessageNumber string         `json:"message_number,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	ReceivedAt    time.Time      `json:"received_at"`
}

// IsSyncHandshake reports whether the notification only confirms a new channel.
func (n PushNotification) IsSyncHandshake() bool {
	return n.ResourceState == "sync"
}
