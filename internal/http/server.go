// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package http serves the flight-packet websocket tap on a gin engine, even
// though there's only the one route — middleware and graceful-shutdown
// wiring stay consistent with the rest of the ops surface this way.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	wshandler "github.com/gaps-tof/liftof-cc/internal/http/websocket"
	"github.com/gaps-tof/liftof-cc/internal/pubsub"
	"github.com/gin-gonic/gin"
)

const readTimeout = 3 * time.Second

// CreateRouter builds the gin engine serving the flight-packet tap.
func CreateRouter(bus pubsub.PubSub, topic string, log *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	h := wshandler.NewHandler(bus, topic, log)
	r.GET("/ws/flightpackets", func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	})
	return r
}

// CreateServer starts the flight-packet tap server and blocks until it
// fails or is shut down. Returns nil immediately if disabled.
func CreateServer(cfg *config.Config, bus pubsub.PubSub, log *slog.Logger) error {
	if !cfg.HTTP.Enabled {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	topic := cfg.Sink.PublishTopic
	if topic == "" {
		topic = "sink.flight_packet"
	}
	r := CreateRouter(bus, topic, log)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.BindAddress, cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: readTimeout,
	}
	log.Info("flight-packet tap server listening", "address", server.Addr)
	return server.ListenAndServe()
}
