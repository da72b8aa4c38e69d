// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package pprof wires up the debug/health HTTP surface: gin-contrib/pprof's
// /debug/pprof/* handlers plus a /healthz liveness probe.
package pprof

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

const readTimeout = 3 * time.Second

// CreatePProfServer starts the debug/health server and blocks until it
// fails or is shut down. Returns nil immediately if pprof is disabled.
func CreatePProfServer(cfg *config.Config, tc *threadcontrol.ThreadControl, log *slog.Logger) error {
	if !cfg.PProf.Enabled {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		hung := hungWorkers(tc)
		if len(hung) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "hung_workers": hung})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "workers": tc.Names()})
	})

	pprof.Register(r)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.PProf.BindAddress, cfg.PProf.Port),
		Handler:           r,
		ReadHeaderTimeout: readTimeout,
	}
	log.Info("pprof/health server listening", "address", server.Addr)
	return server.ListenAndServe()
}

const hungBound = 10 * time.Second

func hungWorkers(tc *threadcontrol.ThreadControl) []string {
	if tc == nil {
		return nil
	}
	var hung []string
	for _, name := range tc.Names() {
		if tc.Hung(name, hungBound) {
			hung = append(hung, name)
		}
	}
	return hung
}
