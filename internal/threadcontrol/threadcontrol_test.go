// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package threadcontrol_test

import (
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
	"github.com/stretchr/testify/require"
)

func TestStopIsObservable(t *testing.T) {
	tc := threadcontrol.New()
	require.False(t, tc.Stopped())
	tc.Stop()
	require.True(t, tc.Stopped())
}

func TestHeartbeatAndHung(t *testing.T) {
	tc := threadcontrol.New()
	tc.Heartbeat("mtbreader")
	require.False(t, tc.Hung("mtbreader", time.Hour))
	require.True(t, tc.Hung("mtbreader", -time.Nanosecond))
	require.False(t, tc.Hung("unknown-worker", time.Nanosecond))
}

func TestNamesListsHeartbeatWorkers(t *testing.T) {
	tc := threadcontrol.New()
	tc.Heartbeat("a")
	tc.Heartbeat("b")
	require.ElementsMatch(t, []string{"a", "b"}, tc.Names())
}
