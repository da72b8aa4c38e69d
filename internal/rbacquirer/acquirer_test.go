// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbacquirer_test

import (
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/rbacquirer"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
	"github.com/stretchr/testify/require"
)

type fakeEventCounter struct{ n uint32 }

func (f *fakeEventCounter) EventCounter() (uint32, error) { return f.n, nil }

type fakeRate struct{ hz float64 }

func (f *fakeRate) TriggerRateHz() (float64, error) { return f.hz, nil }

func TestAcquirerFlipsOnTrip(t *testing.T) {
	bufA := rbacquirer.NewMemDMABuffer(1000)
	bufB := rbacquirer.NewMemDMABuffer(1000)
	bufA.Write(make([]byte, 900))

	ec := &fakeEventCounter{n: 1}
	rate := &fakeRate{hz: 0}
	sink := make(chan []byte, 4)
	tc := threadcontrol.New()

	a := rbacquirer.NewAcquirer(1, bufA, bufB, rbacquirer.NEventsTrip{K: 1}, ec, rate, sink, tc, nil)
	require.NoError(t, a.Start())

	ec.n = 2
	a.Run(1 * time.Millisecond)
	tc.Stop()

	select {
	case block := <-sink:
		require.Len(t, block, 900)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a flipped block on the sink channel")
	}
	require.Equal(t, uint64(1), a.Counters.EventsSeen)
}

func TestAcquirerCountsSkippedEvents(t *testing.T) {
	bufA := rbacquirer.NewMemDMABuffer(1000)
	bufB := rbacquirer.NewMemDMABuffer(1000)
	ec := &fakeEventCounter{n: 0}
	sink := make(chan []byte, 4)
	tc := threadcontrol.New()

	a := rbacquirer.NewAcquirer(2, bufA, bufB, rbacquirer.NEventsTrip{K: 100}, ec, nil, sink, tc, nil)
	require.NoError(t, a.Start())

	ec.n = 5
	go a.Run(1 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	tc.Stop()
	time.Sleep(5 * time.Millisecond)

	require.Equal(t, uint64(5), a.Counters.EventsSeen)
	require.Equal(t, uint64(4), a.Counters.EventsSkipped)
}

func TestAcquirerForcedTriggerMode(t *testing.T) {
	bufA := rbacquirer.NewMemDMABuffer(1000)
	bufB := rbacquirer.NewMemDMABuffer(1000)
	sink := make(chan []byte, 4)
	tc := threadcontrol.New()

	a := rbacquirer.NewAcquirer(3, bufA, bufB, rbacquirer.NEventsTrip{K: 100}, nil, nil, sink, tc, nil)
	a.ForcedTriggerHz = 1000
	writes := 0
	a.SetForceWrite(func() error {
		writes++
		return nil
	})
	require.NoError(t, a.Start())

	go a.Run(1 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	tc.Stop()
	time.Sleep(5 * time.Millisecond)

	require.Greater(t, writes, 0)
	require.Greater(t, a.Counters.EventsSeen, uint64(0))
}

// regressingBuffer snapshots a nonzero occupancy at Start(), then reports an
// occupancy lower than that snapshot on the following read — simulating a
// hardware counter that resets itself underneath ResetOccupancy.
type regressingBuffer struct {
	occ       uint64
	cap       uint64
	afterFirstRead uint64
	reads     int
}

func (b *regressingBuffer) Occupancy() (uint64, error) {
	b.reads++
	if b.reads == 1 {
		return b.occ, nil
	}
	return b.afterFirstRead, nil
}
func (b *regressingBuffer) ReadRange(s, e uint64) ([]byte, error) { return make([]byte, e-s), nil }
func (b *regressingBuffer) ResetOccupancy() error                 { return nil }
func (b *regressingBuffer) Capacity() uint64                      { return b.cap }

func TestAcquirerOccupancyRegressionForcesFlip(t *testing.T) {
	bufA := &regressingBuffer{occ: 500, afterFirstRead: 5, cap: 1000}
	bufB := rbacquirer.NewMemDMABuffer(1000)
	ec := &fakeEventCounter{n: 0}
	sink := make(chan []byte, 4)
	tc := threadcontrol.New()

	a := rbacquirer.NewAcquirer(4, bufA, bufB, rbacquirer.NEventsTrip{K: 1000}, ec, nil, sink, tc, nil)
	require.NoError(t, a.Start()) // snapshots startOffA = 500

	ec.n = 1
	go a.Run(1 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	tc.Stop()
	time.Sleep(5 * time.Millisecond)

	require.Equal(t, uint64(1), a.Counters.ForcedFlips)
}
