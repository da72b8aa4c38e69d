// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package cmd

import (
	"testing"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewCommandCarriesVersionAnnotations(t *testing.T) {
	t.Parallel()
	c := NewCommand("1.2.3", "deadbeef")
	require.Equal(t, "1.2.3", c.Annotations["version"])
	require.Equal(t, "deadbeef", c.Annotations["commit"])
	require.Equal(t, "liftof-cc", c.Use)

	sub, _, err := c.Find([]string{"watch-buffer"})
	require.NoError(t, err)
	require.Equal(t, "watch-buffer", sub.Name())
}

func TestSetupLoggerSelectsLevelFromConfig(t *testing.T) {
	t.Parallel()
	for _, lvl := range []config.LogLevel{
		config.LogLevelDebug, config.LogLevelInfo, config.LogLevelWarn, config.LogLevelError,
	} {
		cfg := config.Default()
		cfg.LogLevel = lvl
		log := setupLogger(cfg)
		require.NotNil(t, log)
	}
}
