// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/pubsub"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPubSubDeliversToSubscriber(t *testing.T) {
	ctx := context.Background()
	bus, err := pubsub.MakePubSub(ctx, &config.Config{})
	require.NoError(t, err)
	defer bus.Close()

	sub := bus.Subscribe(ctx, "control")
	defer sub.Close()

	require.NoError(t, bus.Publish(ctx, "control", []byte("ping")))

	select {
	case msg := <-sub.Channel():
		require.Equal(t, []byte("ping"), msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPubSubIgnoresOtherTopics(t *testing.T) {
	ctx := context.Background()
	bus, err := pubsub.MakePubSub(ctx, &config.Config{})
	require.NoError(t, err)
	defer bus.Close()

	sub := bus.Subscribe(ctx, "control")
	defer sub.Close()

	require.NoError(t, bus.Publish(ctx, "heartbeat", []byte("tick")))

	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected message on wrong topic: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
