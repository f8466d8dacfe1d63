package web

import (
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) ListWebhooks(c fiber.Ctx) error {
	webhooks, err := h.services.Webhooks.List(c.Context(), c.Query("owner_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	response := make([]WebhookResponse, 0, len(webhooks))
	for _, webhook := range webhooks {
		response = append(response, TransformWebhookResponse(webhook))
	}

	return data(c, fiber.StatusOK, response)
}

func (h *APIHandlers) GetWebhook(c fiber.Ctx) error {
	webhook, err := h.services.Webhooks.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, TransformWebhookResponse(webhook))
}

func (h *APIHandlers) CreateWebhook(c fiber.Ctx) error {
	webhook, err := h.bindWebhook(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.services.Webhooks.Create(c.Context(), webhook)
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusCreated, TransformWebhookResponse(created))
}

func (h *APIHandlers) UpdateWebhook(c fiber.Ctx) error {
	webhook, err := h.bindWebhook(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.services.Webhooks.Update(c.Context(), c.Params("id"), webhook)
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, TransformWebhookResponse(updated))
}

func (h *APIHandlers) DeleteWebhook(c fiber.Ctx) error {
	if err := h.services.Webhooks.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) bindWebhook(c fiber.Ctx) (*models.WebhookSubscription, error) {
	var req WebhookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, services.ErrInvalidRequest
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &models.WebhookSubscription{
		Name:       req.Name,
		OwnerID:    req.OwnerID,
		EventTypes: req.EventTypes,
		TargetURL:  req.TargetURL,
		SecretKey:  req.SecretKey,
		Headers:    req.Headers,
		IsActive:   active,
	}, nil
}

func (h *APIHandlers) GetUsage(c fiber.Ctx) error {
	end := timeNow().UTC()
	start := end.AddDate(0, 0, -7)

	var err error

	if value := c.Query("start_date"); value != "" {
		if start, err = parseDate(value); err != nil {
			return badRequest(c, "invalid start_date: "+err.Error())
		}
	}

	if value := c.Query("end_date"); value != "" {
		if end, err = parseDate(value); err != nil {
			return badRequest(c, "invalid end_date: "+err.Error())
		}
	}

	buckets, err := h.services.Analytics.Usage(c.Context(), start, end, c.Query("granularity"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, buckets)
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	return time.Parse(time.DateOnly, value)
}
