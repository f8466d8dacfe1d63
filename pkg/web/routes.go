package web

import "github.com/gofiber/fiber/v3"

// Register mounts every endpoint under router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/activate", h.ActivateWorkflow)
	w.Post("/:id/deactivate", h.DeactivateWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	e := router.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Get("/:id/steps", h.GetExecutionSteps)

	n := router.Group("/nodes")
	n.Get("/", h.ListNodeTypes)
	n.Get("/:type", h.GetNodeType)

	s := router.Group("/subscriptions")
	s.Get("/", h.ListSubscriptions)
	s.Post("/", h.CreateSubscription)
	s.Delete("/:id", h.DeleteSubscription)

	router.Post("/notifications/:provider", h.ReceiveNotification)

	wh := router.Group("/webhooks")
	wh.Get("/", h.ListWebhooks)
	wh.Post("/", h.CreateWebhook)
	wh.Get("/:id", h.GetWebhook)
	wh.Put("/:id", h.UpdateWebhook)
	wh.Delete("/:id", h.DeleteWebhook)

	router.Get("/analytics/usage", h.GetUsage)
}
