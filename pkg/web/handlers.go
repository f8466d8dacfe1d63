// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chainreact/chainreact/pkg/ingest"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

var timeNow = time.Now

// Services groups the use cases the handlers call.
type Services struct {
	Workflows     *services.Workflow
	Executions    *services.Execution
	Subscriptions *services.Subscription
	Webhooks      *services.Webhook
	Analytics     *services.Analytics
	Nodes         *services.Node
}

type APIHandlers struct {
	services  Services
	validator *validator.Validate
	sink      ingest.Sink
}

// NewAPIHandlers wires the handlers. sink receives push notifications.
func NewAPIHandlers(svcs Services, validator *validator.Validate, sink ingest.Sink) *APIHandlers {
	return &APIHandlers{
		services:  svcs,
		validator: validator,
		sink:      sink,
	}
}

func data(c fiber.Ctx, status int, value any) error {
	return c.Status(status).JSON(DataResponse{Data: value})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.services.Workflows.ListWorkflows(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DataResponse{
		Data: result.Workflows,
		Pagination: &Pagination{
			Page:    result.Page,
			Limit:   result.Limit,
			Total:   result.TotalCount,
			HasNext: result.HasNextPage,
		},
	})
}

func parseListWorkflowsRequest(c fiber.Ctx) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{}

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, err
		}

		req.Page = page
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	req.OwnerID = c.Query("owner_id")

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		req.Status = &status
	}

	return req, nil
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.services.Workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.services.Workflows.Create(c.Context(), &models.Workflow{
		Name:          req.Name,
		Description:   req.Description,
		Status:        req.Status,
		Nodes:         req.Nodes,
		Edges:         req.Edges,
		Variables:     req.Variables,
		Configuration: req.Configuration,
		Owner:         req.Owner,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusCreated, created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.services.Workflows.Update(c.Context(), c.Params("id"), &models.Workflow{
		Name:          req.Name,
		Description:   req.Description,
		Status:        req.Status,
		Nodes:         req.Nodes,
		Edges:         req.Edges,
		Variables:     req.Variables,
		Configuration: req.Configuration,
		Owner:         req.Owner,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.services.Workflows.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	workflow, err := h.services.Workflows.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, workflow)
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	workflow, err := h.services.Workflows.Deactivate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, workflow)
}

func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.services.Executions.Execute(c.Context(), c.Params("id"), services.ExecuteRequest{
		Input:         req.Input,
		TriggerNodeID: req.TriggerNodeID,
		Options: models.ExecutionOptions{
			Mode:        req.Mode,
			SkipNodes:   req.SkipNodes,
			MockOutputs: req.MockOutputs,
		},
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, ExecuteWorkflowResponse{ExecutionID: session.ID, Status: session.Status})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	sessions, err := h.services.Executions.ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, sessions)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	session, err := h.services.Executions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, session)
}

func (h *APIHandlers) GetExecutionSteps(c fiber.Ctx) error {
	steps, err := h.services.Executions.Steps(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, steps)
}

func (h *APIHandlers) ListNodeTypes(c fiber.Ctx) error {
	return data(c, fiber.StatusOK, h.services.Nodes.List())
}

func (h *APIHandlers) GetNodeType(c fiber.Ctx) error {
	nodeType, err := h.services.Nodes.Get(c.Params("type"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return data(c, fiber.StatusOK, nodeType)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.services.Workflows.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"nodes":      strconv.Itoa(len(h.services.Nodes.List())) + " node types registered",
		},
		"timestamp": time.Now().UTC(),
	})
}
