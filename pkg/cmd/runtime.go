package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chainreact/chainreact/pkg/changes"
	"github.com/chainreact/chainreact/pkg/dedup"
	"github.com/chainreact/chainreact/pkg/eventbus"
	"github.com/chainreact/chainreact/pkg/ingest"
	"github.com/chainreact/chainreact/pkg/matcher"
	"github.com/chainreact/chainreact/pkg/otelhelper"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/protocol"
	"github.com/chainreact/chainreact/pkg/providers/gateway"
	"github.com/chainreact/chainreact/pkg/registry"
	"github.com/chainreact/chainreact/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

// Runtime holds what every binary builds from CommonFlags.
type Runtime struct {
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Registry    *registry.Registry
	// Gateway is nil when no gateway URL is configured.
	Gateway    *gateway.Client
	Tracer     trace.Tracer
	Dispatcher *workflow.Dispatcher
	// Metrics is the binary's own prometheus registry.
	Metrics *prometheus.Registry

	ingestMetrics *ingest.Metrics
}

// NewRuntime opens persistence and the event bus and builds the node registry
// and the execution dispatcher. Close releases what it opened.
func NewRuntime(ctx context.Context, command *cli.Command, serviceName string, logger *slog.Logger) (*Runtime, error) {
	tracer, err := otelhelper.NewTracerOrNoop(ctx, serviceName, command.Bool(FlagOtelEnabled))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	rt := &Runtime{Tracer: tracer, Metrics: prometheus.NewRegistry()}
	rt.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt.ingestMetrics, err = ingest.NewMetrics(rt.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	var invoker protocol.ActionInvoker

	if url := command.String(FlagGatewayURL); url != "" {
		rt.Gateway, err = NewGateway(url, command.String(FlagGatewayToken), logger)
		if err != nil {
			return nil, err
		}

		invoker = rt.Gateway
	} else {
		logger.WarnContext(ctx, "No provider gateway configured; provider nodes are unavailable")
	}

	rt.Registry, err = NewRegistry(logger, command.String(FlagPluginsPath), invoker)
	if err != nil {
		return nil, err
	}

	rt.Persistence, err = NewPersistence(ctx, logger, command.String(FlagDatabaseURL))
	if err != nil {
		return nil, err
	}

	rt.EventBus, err = NewEventBus(command.String(FlagEventBus), command.String(FlagKafkaBrokers), serviceName, logger)
	if err != nil {
		_ = rt.Persistence.Close(ctx)

		return nil, err
	}

	executor := workflow.NewExecutor(rt.Registry, rt.Persistence.Executions(), tracer, logger)
	rt.Dispatcher = workflow.NewDispatcher(rt.Persistence.Executions(), executor, rt.EventBus, logger)

	return rt, nil
}

// NewProcessor builds the notification pipeline over the runtime. It needs a
// gateway to fetch changes.
func (rt *Runtime) NewProcessor(store dedup.Store, logger *slog.Logger) (*ingest.Processor, error) {
	if rt.Gateway == nil {
		return nil, errors.New("processing notifications requires a provider gateway")
	}

	return ingest.NewProcessor(
		changes.NewFetcher(rt.Persistence.Subscriptions(), rt.Gateway, logger),
		changes.NewClassifier(),
		matcher.NewMatcher(rt.Persistence.Workflows(), logger),
		dedup.NewDeduplicator(store, logger),
		rt.Dispatcher,
		rt.Tracer,
		logger,
	).WithMetrics(rt.ingestMetrics), nil
}

// MetricsHandler serves the runtime's registry in the prometheus text format.
func (rt *Runtime) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{Registry: rt.Metrics})
}

// Close releases the event bus and persistence.
func (rt *Runtime) Close(ctx context.Context) error {
	return errors.Join(rt.EventBus.Close(), rt.Persistence.Close(ctx))
}
