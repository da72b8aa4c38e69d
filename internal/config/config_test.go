// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package config_test

import (
	"testing"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "trace"
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidLogLevel)
}

func TestValidateRequiresMappingDB(t *testing.T) {
	cfg := config.Default()
	cfg.MappingDBPath = ""
	require.ErrorIs(t, cfg.Validate(), config.ErrMappingDBPathRequired)
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Builder.TimeoutSec = 0
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidBuilderTimeout)
}
