// Package eventbus carries notifications and execution lifecycle events
// between the chainreact binaries.
package eventbus

import (
	"context"

	"github.com/chainreact/chainreact/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// NopPublisher drops every event. It is used where lifecycle events have no consumer.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
