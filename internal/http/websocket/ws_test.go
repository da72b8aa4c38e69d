// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package websocket_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	internalws "github.com/gaps-tof/liftof-cc/internal/http/websocket"
	"github.com/gaps-tof/liftof-cc/internal/pubsub"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHandlerRelaysPublishedPackets(t *testing.T) {
	bus, err := pubsub.MakePubSub(context.Background(), &config.Config{})
	require.NoError(t, err)
	defer bus.Close()

	h := internalws.NewHandler(bus, "sink.flight_packet", nil)
	server := httptest.NewServer(h)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), "sink.flight_packet", []byte("packet-1")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "packet-1", string(msg))
}
