package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/chainreact/chainreact/pkg/cmd"
	"github.com/chainreact/chainreact/pkg/log"
	"github.com/chainreact/chainreact/pkg/notify"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const webhookTimeout = 10 * time.Second

func main() {
	command := &cli.Command{
		Name:                  "chainreact-processor",
		Usage:                 "Process queued push notifications and deliver lifecycle webhooks",
		EnableShellCompletion: true,
		Flags: append(cmd.CommonFlags(),
			&cli.StringFlag{
				Name:    "processor-id",
				Aliases: []string{"id"},
				Usage:   "Custom processor ID (auto-generated if not provided)",
				Sources: cli.EnvVars("PROCESSOR_ID"),
			},
			cmd.DedupStoreFlag(),
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Address serving prometheus metrics on /metrics (empty disables)",
				Value:   ":9091",
				Sources: cli.EnvVars("METRICS_ADDR"),
			},
		),
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String(cmd.FlagLogLevel))

	processorID := command.String("processor-id")
	if processorID == "" {
		processorID = "processor-" + uuid.NewString()[:8]
	}

	logger := log.WithModule("chainreact-processor").With("processor_id", processorID)
	logger.InfoContext(ctx, "Initializing ChainReact processor")

	rt, err := cmd.NewRuntime(ctx, command, "chainreact-processor", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := rt.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	store, closeStore, err := cmd.NewDedupStore(command.String(cmd.FlagDedupStore), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeStore(); err != nil {
			logger.ErrorContext(ctx, "Failed to close dedup store", "error", err)
		}
	}()

	processor, err := rt.NewProcessor(store, logger)
	if err != nil {
		return err
	}

	notifier := notify.NewWebhookNotifier(rt.Persistence.Webhooks(), &http.Client{Timeout: webhookTimeout}, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if addr := command.String("metrics-addr"); addr != "" {
		stop := serveMetrics(ctx, addr, rt.MetricsHandler(), logger)
		defer stop()
	}

	service := NewService(processorID, rt.EventBus, logger, processor, notifier)
	service.handleSignals(cancel)

	return service.Run(ctx)
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.InfoContext(ctx, "Serving metrics", "addr", addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "Metrics server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}
}
