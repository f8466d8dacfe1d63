package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainreact/chainreact/pkg/cmd"
	"github.com/chainreact/chainreact/pkg/log"
	"github.com/chainreact/chainreact/pkg/providers/scheduler"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "chainreact-scheduler",
		Usage:                 "Run schedule triggers of active workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
		Flags: append(cmd.CommonFlags(),
			&cli.DurationFlag{
				Name:    "reload-interval",
				Usage:   "How often stored workflows are re-read for schedule changes",
				Value:   scheduler.DefaultReloadInterval,
				Sources: cli.EnvVars("SCHEDULER_RELOAD_INTERVAL"),
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

	logger := log.WithModule("chainreact-scheduler")
	logger.InfoContext(ctx, "Initializing ChainReact scheduler")

	rt, err := cmd.NewRuntime(ctx, command, "chainreact-scheduler", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := rt.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	provider := scheduler.NewSchedulerProvider(
		rt.Persistence.Workflows(),
		rt.Dispatcher,
		logger,
		scheduler.WithReloadInterval(command.Duration("reload-interval")),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := provider.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return provider.Stop(context.WithoutCancel(ctx))
		case sig := <-signals:
			logger.InfoContext(ctx, "Received signal", "signal", sig)

			if sig != syscall.SIGHUP {
				logger.InfoContext(ctx, "Shutting down gracefully...")

				return provider.Stop(context.WithoutCancel(ctx))
			}

			if err := provider.Reload(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to reload schedules", "error", err)
			}

			logger.InfoContext(ctx, "Schedules reloaded", "entries", provider.Entries())
		}
	}
}
