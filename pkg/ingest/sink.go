package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chainreact/chainreact/pkg/eventbus"
	"github.com/chainreact/chainreact/pkg/events"
	"github.com/chainreact/chainreact/pkg/models"
)

// Sink receives push notifications from the HTTP receiver. A nil report means
// the notification was queued rather than processed.
type Sink interface {
	Accept(ctx context.Context, notification models.PushNotification) (*Report, error)
}

// InlineSink processes notifications in the request that delivered them.
type InlineSink struct {
	processor *Processor
}

func NewInlineSink(processor *Processor) *InlineSink {
	return &InlineSink{processor: processor}
}

func (s *InlineSink) Accept(ctx context.Context, notification models.PushNotification) (*Report, error) {
	return s.processor.HandleNotification(ctx, notification)
}

// BusSink publishes notifications for a processor running elsewhere. The
// channel id is the message key so one channel is consumed in order.
type BusSink struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewBusSink(publisher eventbus.EventPublisher, logger *slog.Logger) *BusSink {
	return &BusSink{
		publisher: publisher,
		logger:    logger.With("module", "notification_sink"),
	}
}

func (s *BusSink) Accept(ctx context.Context, notification models.PushNotification) (*Report, error) {
	event := events.NotificationReceived{
		BaseEvent:    events.NewBaseEvent(events.NotificationReceivedEvent, ""),
		Notification: notification,
	}

	if err := s.publisher.Publish(ctx, notification.ChannelID, event); err != nil {
		return nil, fmt.Errorf("publish notification for channel %s: %w", notification.ChannelID, err)
	}

	s.logger.DebugContext(ctx, "Notification queued", "channel_id", notification.ChannelID, "provider", notification.Provider)

	return nil, nil
}
