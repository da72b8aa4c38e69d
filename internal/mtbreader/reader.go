// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package mtbreader owns the master trigger board's IPBus client and turns
// its DAQ FIFO word stream into events.MTBEvent values.
// Grounded on the original driver's read_mtb_event/read_daq polling loop
// (master_trigger.rs): poll the event-queue-size register, drain the FIFO
// data register, and hand the assembled words to a dedicated decoder.
package mtbreader

import (
	"context"
	"log/slog"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/heartbeat"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
)

// daqMagicWord is the MTB's "empty/no data" filler word the FIFO returns
// when polled with nothing queued.
const daqMagicWord = 0xAAAAAAAA

// IPBusClient is the narrow surface Reader needs from internal/ipbus.Client,
// kept as an interface so tests can substitute a fake FIFO.
type IPBusClient interface {
	Read(addr uint32) (uint32, error)
	ReadMulti(addr uint32, n uint8, incrementAddr bool) ([]uint32, error)
}

// Counters tracks the reader's diagnostic tallies.
type Counters struct {
	EventsRead     uint64
	MissingEvents  uint64
	ZeroEvents     uint64 // event_id == 0 encountered (not discarded, logged)
	MagicEvents    uint64 // event_id == daqMagicWord encountered (not discarded, logged)
	CounterRewinds uint64 // event_id < last seen — treated as a counter reset
}

// Reader drains the MTB's DAQ FIFO and emits decoded events.MTBEvent values.
type Reader struct {
	client        IPBusClient
	log           *slog.Logger
	tc            *threadcontrol.ThreadControl
	out           chan<- events.MTBEvent
	moniOut       chan<- MtbMoniData
	maxTailReads  int
	lastEventID   uint32
	haveLast      bool
	Counters      Counters

	// RateStats accumulates the trigger-rate moni samples seen by StartMoni,
	// folded into the worker's heartbeat record so a downstream monitor sees
	// not just the instantaneous rate but its running mean/spread since the
	// last reset.
	RateStats *heartbeat.RunningStats
}

// New constructs a Reader. maxTailReads bounds the total number of words,
// fixed fields included, the reader pulls off the FIFO for one event while
// looking for its tail word, guarding against a corrupted stream never
// producing a tail. An event longer than that bound is not decoded: the read
// ends with errTailNotFound.
func New(client IPBusClient, out chan<- events.MTBEvent, moniOut chan<- MtbMoniData, tc *threadcontrol.ThreadControl, maxTailReads int, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	if maxTailReads <= 0 {
		maxTailReads = 16
	}
	return &Reader{client: client, out: out, moniOut: moniOut, tc: tc, maxTailReads: maxTailReads, log: log, RateStats: heartbeat.NewRunningStats()}
}

// Run polls the FIFO occupancy register on every tick and drains whatever
// complete events are available, until the ThreadControl stop flag fires.
func (r *Reader) Run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for !r.tc.Stopped() {
		<-ticker.C
		r.tc.Heartbeat("mtbreader")
		if err := r.drain(); err != nil {
			r.log.Warn("mtbreader drain failed", "error", err)
		}
	}
}

// drain reads the queue-occupancy register and pulls as many complete
// events as are currently available.
func (r *Reader) drain() error {
	occ, err := r.client.Read(regEventQueueSize)
	if err != nil {
		return err
	}
	nWords := occ >> 16
	for nWords > 0 {
		ev, consumed, err := r.readOneEvent()
		if err != nil {
			return err
		}
		r.admit(ev)
		if consumed >= nWords {
			break
		}
		nWords -= consumed
	}
	return nil
}

// readOneEvent pulls one event's worth of DAQ words off the FIFO data
// register and decodes it. It returns the number of 32-bit words consumed so
// the caller can track remaining FIFO occupancy.
func (r *Reader) readOneEvent() (events.MTBEvent, uint32, error) {
	var words []uint32
	for i := 0; i < r.maxTailReads; i++ {
		batch, err := r.client.ReadMulti(regDAQFIFOData, 1, false)
		if err != nil {
			return events.MTBEvent{}, 0, err
		}
		words = append(words, batch...)
		if ev, ok := tryDecodeWords(words); ok {
			return ev, uint32(len(words)), nil
		}
	}
	return events.MTBEvent{}, uint32(len(words)), errTailNotFound
}

// admit applies the event-ID policy and forwards the event regardless of the diagnostic
// outcome (zero ID, magic ID, rewind, gap): these anomalies are logged and
// counted, not discarded. The one exception is an exact repeat of the
// previous event ID, which is dropped without being forwarded.
func (r *Reader) admit(ev events.MTBEvent) {
	r.Counters.EventsRead++
	switch {
	case ev.EventID == 0:
		r.Counters.ZeroEvents++
		r.log.Warn("mtbreader event id 0 encountered")
	case ev.EventID == daqMagicWord:
		r.Counters.MagicEvents++
		r.log.Warn("mtbreader magic event id encountered", "event_id", ev.EventID)
	}

	if r.haveLast {
		switch {
		case ev.EventID == r.lastEventID:
			return
		case ev.EventID < r.lastEventID:
			r.Counters.CounterRewinds++
			r.log.Error("mtbreader event counter rewound", "this", ev.EventID, "last", r.lastEventID)
		case ev.EventID-r.lastEventID > 1:
			missing := ev.EventID - r.lastEventID - 1
			r.Counters.MissingEvents += uint64(missing)
			r.log.Warn("mtbreader missed event ids", "count", missing)
		}
	}
	r.lastEventID = ev.EventID
	r.haveLast = true

	select {
	case r.out <- ev:
	default:
		r.log.Warn("mtbreader event channel full, dropping event", "event_id", ev.EventID)
	}
}

// StartMoni launches the periodic monitoring sampler and blocks until ctx is
// cancelled or the ThreadControl stop flag fires.
func (r *Reader) StartMoni(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.tc.Stopped() {
				return
			}
			r.tc.Heartbeat("mtbreader.moni")
			moni, err := r.sampleMoni()
			if err != nil {
				r.log.Warn("mtbreader moni sample failed", "error", err)
				continue
			}
			r.RateStats.Push(float64(moni.Rate))
			select {
			case r.moniOut <- moni:
			default:
				r.log.Warn("mtbreader moni channel full, dropping sample")
			}
		}
	}
}
