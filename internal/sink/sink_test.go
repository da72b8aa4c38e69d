// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package sink_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/pubsub"
	"github.com/gaps-tof/liftof-cc/internal/sink"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
	"github.com/stretchr/testify/require"
)

func TestSinkWritesRotatingFiles(t *testing.T) {
	dir := t.TempDir()
	in := make(chan events.CompositeEvent, 4)
	tc := threadcontrol.New()
	cfg := config.SinkConfig{OutputDir: dir, RotateCount: 2}
	s := sink.New(cfg, in, nil, tc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := uint32(1); i <= 3; i++ {
		in <- events.CompositeEvent{EventID: i}
	}
	time.Sleep(20 * time.Millisecond)
	tc.Stop()
	cancel()
	<-done

	require.Equal(t, uint64(3), s.Counters.Written)
	require.Equal(t, uint64(2), s.Counters.RotationCount)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestSinkPublishesFlightPacket(t *testing.T) {
	dir := t.TempDir()
	in := make(chan events.CompositeEvent, 2)
	tc := threadcontrol.New()
	bus, err := pubsub.MakePubSub(context.Background(), &config.Config{})
	require.NoError(t, err)
	cfg := config.SinkConfig{OutputDir: dir, RotateCount: 100, FlightPacket: true, PublishTopic: "sink.test"}
	s := sink.New(cfg, in, bus, tc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sub := bus.Subscribe(ctx, "sink.test")
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	in <- events.CompositeEvent{EventID: 9}

	select {
	case msg := <-sub.Channel():
		require.NotEmpty(t, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a flight-packet publication")
	}

	tc.Stop()
	cancel()
	<-done
}
