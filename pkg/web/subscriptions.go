package web

import (
	"encoding/json"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/gofiber/fiber/v3"
)

// Push notification headers set by Google watch channels.
const (
	HeaderChannelID     = "X-Goog-Channel-ID"
	HeaderResourceState = "X-Goog-Resource-State"
	HeaderMessageNumber = "X-Goog-Message-Number"
)

func (h *APIHandlers) CreateSubscription(c fiber.Ctx) error {
	var req RegisterSubscriptionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	subscription, err := h.services.Subscriptions.Register(c.Context(), services.RegisterWatchRequest{
		AccountID:     req.AccountID,
		IntegrationID: req.IntegrationID,
		Provider:      req.Provider,
		ScopeMetadata: req.ScopeMetadata,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusCreated, subscription)
}

func (h *APIHandlers) ListSubscriptions(c fiber.Ctx) error {
	subscriptions, err := h.services.Subscriptions.ListByAccount(c.Context(), c.Query("account_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, subscriptions)
}

func (h *APIHandlers) DeleteSubscription(c fiber.Ctx) error {
	if err := h.services.Subscriptions.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ReceiveNotification accepts a provider push. Sync handshakes are
// acknowledged without touching the sink.
func (h *APIHandlers) ReceiveNotification(c fiber.Ctx) error {
	notification := models.PushNotification{
		Provider:      models.Provider(c.Params("provider")),
		ChannelID:     c.Get(HeaderChannelID),
		ResourceState: c.Get(HeaderResourceState),
		MessageNumber: c.Get(HeaderMessageNumber),
		ReceivedAt:    timeNow().UTC(),
	}

	if body := c.Body(); len(body) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		notification.Payload = payload

		if notification.ChannelID == "" {
			notification.ChannelID, _ = payload["channel_id"].(string)
		}

		if notification.ResourceState == "" {
			notification.ResourceState, _ = payload["resource_state"].(string)
		}
	}

	if notification.ChannelID == "" {
		return badRequest(c, "channel id is required")
	}

	if notification.IsSyncHandshake() {
		return data(c, fiber.StatusOK, fiber.Map{"status": "acknowledged"})
	}

	report, err := h.sink.Accept(c.Context(), notification)
	if err != nil {
		return handleServiceError(c, err)
	}

	if report == nil {
		return data(c, fiber.StatusAccepted, fiber.Map{"status": "queued"})
	}

	return data(c, fiber.StatusOK, fiber.Map{"status": "processed", "report": report})
}
