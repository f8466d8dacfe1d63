package web

import (
	"errors"

	"github.com/chainreact/chainreact/pkg/changes"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// problem writes an RFC 7807 body with the given status and type.
func problem(c fiber.Ctx, status int, kind, detail string) error {
	body := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(body)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusNotFound, "not_found", detail)
}

func internalError(c fiber.Ctx, err error) error {
	return problem(c, fiber.StatusInternalServerError, "internal_error", err.Error())
}

// handleServiceError maps service error codes to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	case services.IsNotFoundError(err),
		persistence.IsWorkflowNotFound(err),
		persistence.IsSessionNotFound(err),
		persistence.IsSubscriptionNotFound(err),
		persistence.IsWebhookNotFound(err):
		var serviceErr *services.ServiceError
		if errors.As(err, &serviceErr) && serviceErr.Message != "" {
			return notFound(c, serviceErr.Message)
		}

		return notFound(c, err.Error())

	case changes.IsTransient(err):
		return problem(c, fiber.StatusServiceUnavailable, "provider_unavailable", err.Error())

	default:
		return internalError(c, err)
	}
}
