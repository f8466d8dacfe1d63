// Package main provides the ChainReact API server implementation.
package main

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chainreact/chainreact/pkg/ingest"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/registry"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/chainreact/chainreact/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	dispatcher  services.Dispatcher
	sink        ingest.Sink
	validate    *validator.Validate
	metrics     http.Handler
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	dispatcher services.Dispatcher,
	sink ingest.Sink,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		dispatcher:  dispatcher,
		sink:        sink,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithMetrics serves handler on /metrics.
func (a *API) WithMetrics(handler http.Handler) *API {
	a.metrics = handler

	return a
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(web.Services{
		Workflows:     services.NewWorkflow(a.persistence, a.registry, a.logger),
		Executions:    services.NewExecution(a.persistence, a.dispatcher, a.logger),
		Subscriptions: services.NewSubscription(a.persistence, a.logger),
		Webhooks:      services.NewWebhook(a.persistence),
		Analytics:     services.NewAnalytics(a.persistence.Executions()),
		Nodes:         services.NewNode(a.registry),
	}, a.validate, a.sink)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	if a.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(a.metrics))
	}

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ChainReact API")
	})

	handlers.Register(app.Group("/api/v1"))

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
