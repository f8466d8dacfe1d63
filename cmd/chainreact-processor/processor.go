package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainreact/chainreact/pkg/eventbus"
)

// Handler is anything that attaches event handlers to the bus.
type Handler interface {
	Register(bus eventbus.EventSubscriber) error
}

// Service consumes queued notifications and lifecycle events until it is stopped.
type Service struct {
	id       string
	bus      eventbus.EventSubscriber
	handlers []Handler
	logger   *slog.Logger
}

func NewService(id string, bus eventbus.EventSubscriber, logger *slog.Logger, handlers ...Handler) *Service {
	return &Service{
		id:       id,
		bus:      bus,
		handlers: handlers,
		logger:   logger.With("module", "chainreact-processor", "processor_id", id),
	}
}

// Run registers every handler, subscribes and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	for _, handler := range s.handlers {
		if err := handler.Register(s.bus); err != nil {
			return fmt.Errorf("failed to register handler: %w", err)
		}
	}

	if err := s.bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	s.logger.InfoContext(ctx, "Processor started", "handlers", len(s.handlers))

	<-ctx.Done()

	s.logger.InfoContext(context.WithoutCancel(ctx), "Processor context cancelled, stopping...")

	return nil
}

// handleSignals cancels the service on SIGINT or SIGTERM.
func (s *Service) handleSignals(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range signals {
			s.logger.Info("Received signal", "signal", sig)

			switch sig {
			case syscall.SIGHUP:
				s.logger.Info("Nothing to reload; handlers read configuration per event")
			default:
				s.logger.Info("Shutting down gracefully...")
				signal.Stop(signals)
				cancel()

				return
			}
		}
	}()
}
