package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chainreact/chainreact/pkg/cmd"
	"github.com/chainreact/chainreact/pkg/ingest"
	"github.com/chainreact/chainreact/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort = 9091

	notificationModeInline = "inline"
	notificationModeBus    = "bus"
)

func main() {
	flags := append(cmd.CommonFlags(),
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "notification-mode",
			Usage:   "How push notifications are processed (inline, bus)",
			Value:   notificationModeBus,
			Sources: cli.EnvVars("NOTIFICATION_MODE"),
		},
		cmd.DedupStoreFlag(),
	)

	command := &cli.Command{
		Name:                  "chainreact-api",
		Usage:                 "Manage workflows and receive provider push notifications",
		EnableShellCompletion: true,
		Flags:                 flags,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String(cmd.FlagLogLevel))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing ChainReact API")

	rt, err := cmd.NewRuntime(ctx, command, "chainreact-api", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := rt.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	sink, closeSink, err := newSink(ctx, command, rt)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeSink(); err != nil {
			logger.ErrorContext(ctx, "Failed to close dedup store", "error", err)
		}
	}()

	api := NewAPI(logger, rt.Persistence, rt.Registry, rt.Dispatcher, sink).WithMetrics(rt.MetricsHandler())

	return api.Start(command.Int("port"))
}

// newSink processes notifications in the request when the mode is inline and
// hands them to the processor binary over the bus otherwise.
func newSink(ctx context.Context, command *cli.Command, rt *cmd.Runtime) (ingest.Sink, func() error, error) {
	logger := log.WithModule("api")

	switch mode := command.String("notification-mode"); mode {
	case notificationModeBus:
		return ingest.NewBusSink(rt.EventBus, logger), func() error { return nil }, nil
	case notificationModeInline:
		store, closeStore, err := cmd.NewDedupStore(command.String(cmd.FlagDedupStore), logger)
		if err != nil {
			return nil, nil, err
		}

		processor, err := rt.NewProcessor(store, logger)
		if err != nil {
			_ = closeStore()

			return nil, nil, err
		}

		logger.InfoContext(ctx, "Processing notifications inline")

		return ingest.NewInlineSink(processor), closeStore, nil
	default:
		return nil, nil, fmt.Errorf("unsupported notification mode: %s", mode)
	}
}
