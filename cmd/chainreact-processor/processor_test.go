package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/eventbus"
	"github.com/chainreact/chainreact/pkg/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(bus eventbus.EventSubscriber) error

func (f handlerFunc) Register(bus eventbus.EventSubscriber) error { return f(bus) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestService_RunRegistersAndSubscribes(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Subscribe", mock.Anything).Return(nil)

	registered := 0
	handler := handlerFunc(func(eventbus.EventSubscriber) error {
		registered++

		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewService("p-1", bus, quietLogger(), handler, handler).Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}

	assert.Equal(t, 2, registered)
	bus.AssertExpectations(t)
}

func TestService_RunFailsOnRegister(t *testing.T) {
	bus := &mocks.MockEventBus{}
	boom := errors.New("boom")

	err := NewService("p-1", bus, quietLogger(), handlerFunc(func(eventbus.EventSubscriber) error { return boom })).
		Run(context.Background())

	require.ErrorIs(t, err, boom)
	bus.AssertNotCalled(t, "Subscribe", mock.Anything)
}

func TestService_RunFailsOnSubscribe(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Subscribe", mock.Anything).Return(errors.New("broker down"))

	err := NewService("p-1", bus, quietLogger()).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
