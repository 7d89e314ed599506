package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

type consumerFunc func(ctx context.Context) error

func (f consumerFunc) Run(ctx context.Context) error { return f(ctx) }

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func TestRunStopsOnFailedDependency(t *testing.T) {
	started := false
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Dependencies: []dependency{
			{name: "database", ping: func(context.Context) error { return nil }},
			{name: "redis", ping: func(context.Context) error { return errors.New("connection refused") }},
		},
		Consumers: map[string]consumer{"notification-materializer": consumerFunc(func(ctx context.Context) error {
			started = true
			return nil
		})},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	assert.ErrorContains(t, err, "redis not ready")
	assert.False(t, started)
}

func TestRunReturnsWhenContextCanceled(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:    testLogger(),
		Consumers: map[string]consumer{"notification-materializer": consumerFunc(blockUntilDone)},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
}

func TestRunStopsSiblingsWhenOneConsumerFails(t *testing.T) {
	boom := errors.New("subscription deleted")
	siblingStopped := make(chan struct{})
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumers: map[string]consumer{
			"notification-materializer": consumerFunc(func(context.Context) error { return boom }),
			"sibling": consumerFunc(func(ctx context.Context) error {
				defer close(siblingStopped)
				return blockUntilDone(ctx)
			}),
		},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Run(context.Background()), boom)
	select {
	case <-siblingStopped:
	case <-time.After(time.Second):
		t.Fatal("sibling consumer kept running")
	}
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Consumers: map[string]consumer{"x": consumerFunc(blockUntilDone)}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: testLogger(), Consumers: map[string]consumer{"x": nil}})
	assert.Error(t, err)
}
