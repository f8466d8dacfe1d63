// Package notify forwards execution lifecycle events to the outbound webhooks
// subscribed to them.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chainreact/chainreact/pkg/eventbus"
	"github.com/chainreact/chainreact/pkg/events"
	"github.com/chainreact/chainreact/pkg/persistence"
)

const (
	SignatureHeader = "X-ChainReact-Signature"
	EventHeader     = "X-ChainReact-Event"
	DeliveryHeader  = "X-ChainReact-Delivery"

	deliveryTimeout = 10 * time.Second
)

type lifecycleEvent interface {
	eventbus.Event
	Base() events.BaseEvent
}

// Envelope is the body POSTed to webhook targets.
type Envelope struct {
	ID        string           `json:"id"`
	EventType events.EventType `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      any              `json:"data"`
}

type WebhookNotifier struct {
	webhooks persistence.WebhookRepository
	client   *http.Client
	logger   *slog.Logger
}

func NewWebhookNotifier(webhooks persistence.WebhookRepository, client *http.Client, logger *slog.Logger) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: deliveryTimeout}
	}

	return &WebhookNotifier{
		webhooks: webhooks,
		client:   client,
		logger:   logger.With("module", "webhook_notifier"),
	}
}

// Register handles every lifecycle event type on bus.
func (n *WebhookNotifier) Register(bus eventbus.EventSubscriber) error {
	for _, eventType := range events.LifecycleEventTypes() {
		if err := bus.Handle(eventType, n.handle); err != nil {
			return fmt.Errorf("register webhook handler for %s: %w", eventType, err)
		}
	}

	return nil
}

func (n *WebhookNotifier) handle(ctx context.Context, event any) error {
	lifecycle, ok := event.(lifecycleEvent)
	if !ok {
		n.logger.ErrorContext(ctx, "Unexpected event payload", "type", fmt.Sprintf("%T", event))

		return nil
	}

	_, err := n.Deliver(ctx, lifecycle)

	return err
}

// Deliver posts event to each matching active webhook of the event's owner and
// returns how many deliveries succeeded. Failed deliveries are logged, not retried.
func (n *WebhookNotifier) Deliver(ctx context.Context, event lifecycleEvent) (int, error) {
	base := event.Base()

	webhooks, err := n.webhooks.ForEvent(ctx, string(event.GetType()))
	if err != nil {
		return 0, fmt.Errorf("load webhooks for %s: %w", event.GetType(), err)
	}

	body, err := json.Marshal(Envelope{
		ID:        base.ID,
		EventType: event.GetType(),
		Timestamp: base.Timestamp,
		Data:      event,
	})
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", event.GetType(), err)
	}

	delivered := 0

	for _, webhook := range webhooks {
		if !webhook.Wants(string(event.GetType())) {
			continue
		}

		if webhook.OwnerID != "" && base.OwnerID != "" && webhook.OwnerID != base.OwnerID {
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.TargetURL, bytes.NewReader(body))
		if err != nil {
			n.logger.ErrorContext(ctx, "Invalid webhook target", "webhook_id", webhook.ID, "error", err)

			continue
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(EventHeader, string(event.GetType()))
		req.Header.Set(DeliveryHeader, base.ID)

		for key, value := range webhook.Headers {
			req.Header.Set(key, value)
		}

		if webhook.SecretKey != "" {
			req.Header.Set(SignatureHeader, Sign(webhook.SecretKey, body))
		}

		if err := n.send(req); err != nil {
			n.logger.WarnContext(ctx, "Webhook delivery failed",
				"webhook_id", webhook.ID,
				"event_type", event.GetType(),
				"error", err,
			)

			continue
		}

		delivered++
	}

	return delivered, nil
}

func (n *WebhookNotifier) send(req *http.Request) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("target responded %d", resp.StatusCode)
	}

	return nil
}

// Sign returns the signature header value for body: "sha256=" followed by the
// hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
