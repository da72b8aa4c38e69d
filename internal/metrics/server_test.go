// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package metrics_test

import (
	"net"
	"testing"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestCreateMetricsServerDisabledReturnsNil(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: false}}
	require.NoError(t, metrics.CreateMetricsServer(cfg))
}

func TestCreateMetricsServerPortInUseReturnsError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: true, BindAddress: "127.0.0.1", Port: port}}
	require.Error(t, metrics.CreateMetricsServer(cfg))
}
