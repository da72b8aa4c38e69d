// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package mtbreader

import (
	"context"
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
	"github.com/stretchr/testify/require"
)

// fakeIPBus serves canned register reads and a FIFO word queue.
type fakeIPBus struct {
	registers map[uint32]uint32
	fifo      []uint32
}

func (f *fakeIPBus) Read(addr uint32) (uint32, error) { return f.registers[addr], nil }

func (f *fakeIPBus) ReadMulti(addr uint32, n uint8, incrementAddr bool) ([]uint32, error) {
	out := make([]uint32, 0, n)
	for i := uint8(0); i < n && len(f.fifo) > 0; i++ {
		out = append(out, f.fifo[0])
		f.fifo = f.fifo[1:]
	}
	return out, nil
}

func TestTryDecodeWordsRoundTrip(t *testing.T) {
	ev := events.MTBEvent{
		EventID: 42, TimestampMTB: 100, TimestampTIU: 200,
		TimestampTIUGPS32: 300, TimestampTIUGPS16: 7, TriggerSourceMask: 3,
		MTBLinkMask: 0xDEADBEEFCAFEBABE, LTBHitMasks: []uint16{0x1, 0x2, 0x3},
	}
	words := encodeWords(ev)
	got, ok := tryDecodeWords(words)
	require.True(t, ok)
	require.Equal(t, ev, got)
}

func TestReaderDrainAdmitsEvent(t *testing.T) {
	ev := events.MTBEvent{EventID: 1, LTBHitMasks: []uint16{0x5}}
	client := &fakeIPBus{
		registers: map[uint32]uint32{regEventQueueSize: uint32(len(encodeWords(ev))) << 16},
		fifo:      encodeWords(ev),
	}
	out := make(chan events.MTBEvent, 4)
	moni := make(chan MtbMoniData, 4)
	tc := threadcontrol.New()
	r := New(client, out, moni, tc, 16, nil)

	require.NoError(t, r.drain())
	select {
	case got := <-out:
		require.Equal(t, ev.EventID, got.EventID)
	default:
		t.Fatal("expected an admitted event")
	}
	require.Equal(t, uint64(1), r.Counters.EventsRead)
}

func TestReaderTracksMissingAndZeroAndMagicEvents(t *testing.T) {
	out := make(chan events.MTBEvent, 8)
	moni := make(chan MtbMoniData, 1)
	tc := threadcontrol.New()
	r := New(&fakeIPBus{}, out, moni, tc, 16, nil)

	r.admit(events.MTBEvent{EventID: 1})
	r.admit(events.MTBEvent{EventID: 0})
	r.admit(events.MTBEvent{EventID: daqMagicWord})
	r.admit(events.MTBEvent{EventID: 5})

	require.Equal(t, uint64(1), r.Counters.ZeroEvents)
	require.Equal(t, uint64(1), r.Counters.MagicEvents)
	require.Equal(t, uint64(4), r.Counters.EventsRead)
	require.Greater(t, r.Counters.MissingEvents, uint64(0))
}

func TestReaderDetectsCounterRewind(t *testing.T) {
	out := make(chan events.MTBEvent, 8)
	moni := make(chan MtbMoniData, 1)
	tc := threadcontrol.New()
	r := New(&fakeIPBus{}, out, moni, tc, 16, nil)

	r.admit(events.MTBEvent{EventID: 10})
	r.admit(events.MTBEvent{EventID: 3})
	require.Equal(t, uint64(1), r.Counters.CounterRewinds)
}

func TestStartMoniSamplesUntilStopped(t *testing.T) {
	client := &fakeIPBus{registers: map[uint32]uint32{
		regTriggerRate:    1200,
		regFPGATempVccint: (3000 << 16) | 2000,
		regVccauxVccbram:  (1500 << 16) | 1800,
	}}
	out := make(chan events.MTBEvent, 1)
	moni := make(chan MtbMoniData, 4)
	tc := threadcontrol.New()
	r := New(client, out, moni, tc, 16, nil)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		r.StartMoni(ctx, 1*time.Millisecond)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	select {
	case m := <-moni:
		require.Equal(t, uint16(1200), m.Rate)
	default:
		t.Fatal("expected at least one moni sample")
	}
}
