package models

import (
	"slices"
	"time"
)

// WebhookSubscription forwards execution lifecycle events to an external URL.
type WebhookSubscription struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"                 validate:"required"`
	OwnerID    string            `json:"owner_id"`
	EventTypes []string          `json:"event_types"          validate:"required,min=1"`
	TargetURL  string            `json:"target_url"           validate:"required,url"`
	SecretKey  string            `json:"secret_key,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	IsActive   bool              `json:"is_active"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Wants reports whether the subscription should receive eventType.
func (w *WebhookSubscription) Wants(eventType string) bool {
	return w.IsActive && (slices.Contains(w.EventTypes, eventType) || slices.Contains(w.EventTypes, "*"))
}

// UsageBucket counts executions in one time bucket.
type UsageBucket struct {
	Start     time.Time `json:"start"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Paused    int       `json:"paused"`
	Running   int       `json:"running"`
}
