// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package heartbeat_test

import (
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/heartbeat"
	"github.com/stretchr/testify/require"
)

func TestRunningStatsMeanAndVariance(t *testing.T) {
	s := heartbeat.NewRunningStats()
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Push(v)
	}
	require.InDelta(t, 5.0, s.Mean(), 1e-9)
	require.InDelta(t, 4.0, s.Variance(), 1e-9)
	require.Equal(t, int64(8), s.Count())
	require.Equal(t, 2.0, s.Min())
	require.Equal(t, 9.0, s.Max())
}

func TestRunningStatsResetClearsState(t *testing.T) {
	s := heartbeat.NewRunningStats()
	s.Push(100)
	s.Reset()
	require.Equal(t, int64(0), s.Count())
	require.Equal(t, 0.0, s.Variance())
}

func TestRecordRoundTrip(t *testing.T) {
	r := heartbeat.Record{
		Worker:       "mtbreader",
		Timestamp:    time.Unix(1700000000, 0).UTC(),
		Alive:        true,
		ChannelDepth: 3,
		Counters:     map[string]uint64{"events": 42},
	}
	data, err := r.Encode()
	require.NoError(t, err)

	cursor := 0
	got, err := heartbeat.DecodeRecord(data, &cursor)
	require.NoError(t, err)
	require.Equal(t, r.Worker, got.Worker)
	require.Equal(t, r.ChannelDepth, got.ChannelDepth)
	require.Equal(t, r.Counters, got.Counters)
	require.Equal(t, len(data), cursor)
}
