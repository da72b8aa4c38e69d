// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package websocket relays one fixed pubsub topic to any number of
// connected websocket clients: subscribe once, forward every message to
// every upgraded connection. No sessions, no per-client topic selection.
package websocket

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gaps-tof/liftof-cc/internal/pubsub"
	"github.com/gorilla/websocket"
)

const bufferSize = 1024

// Handler upgrades incoming HTTP requests and relays flight packets.
type Handler struct {
	bus      pubsub.PubSub
	topic    string
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler that relays bus's topic to every connected
// client.
func NewHandler(bus pubsub.PubSub, topic string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		bus:   bus,
		topic: topic,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams flight packets to it until
// the client disconnects or writes fail.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("flight-packet websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.bus.Subscribe(ctx, h.topic)
	defer sub.Close()

	// A reader goroutine exists only to notice the client closing the
	// connection; the relay itself is one-directional.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				h.log.Debug("flight-packet websocket write failed", "error", err)
				return
			}
		}
	}
}
