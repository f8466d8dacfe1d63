package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/chainreact/chainreact/pkg/channels/gochannel"
	"github.com/chainreact/chainreact/pkg/eventbus"
	"github.com/chainreact/chainreact/pkg/events"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, logger)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_DeliversTypedEvents(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.NotificationReceived, 1)

	require.NoError(t, bus.Handle(events.NotificationReceivedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.NotificationReceived)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	event := events.NotificationReceived{
		BaseEvent: events.NewBaseEvent(events.NotificationReceivedEvent, ""),
		Notification: models.PushNotification{
			Provider:  models.ProviderGoogleDrive,
			ChannelID: "chan-1",
		},
	}

	require.NoError(t, bus.Publish(ctx, "chan-1", event))

	select {
	case got := <-received:
		assert.Equal(t, "chan-1", got.Notification.ChannelID)
		assert.Equal(t, models.ProviderGoogleDrive, got.Notification.Provider)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestWatermillEventBus_HandlerErrorRedelivers(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := make(chan struct{}, 4)

	require.NoError(t, bus.Handle(events.ExecutionFailedEvent, func(context.Context, any) error {
		attempts <- struct{}{}
		if len(attempts) == 1 {
			return errors.New("webhook down")
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	event := events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, "wf-1"),
		ExecutionID: "exec-1",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", event))

	assert.Eventually(t, func() bool { return len(attempts) >= 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
