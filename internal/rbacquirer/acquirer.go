// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbacquirer

import (
	"log/slog"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
)

// EventCounterReader and RateReader are the hardware accessors the
// acquirer polls; kept as narrow interfaces so a bench test can substitute
// deterministic fakes.
type EventCounterReader interface {
	EventCounter() (uint32, error)
}

// RateReader reads the board's measured trigger rate register.
type RateReader interface {
	TriggerRateHz() (float64, error)
}

// Counters tracks the acquirer's exposed metrics.
type Counters struct {
	EventsSeen    uint64
	EventsSkipped uint64 // gaps in the hardware event counter
	ForcedFlips   uint64
}

// Acquirer owns one board's two DMA buffers, A and B.
type Acquirer struct {
	RBID   uint8
	log    *slog.Logger
	bufA   DMABuffer
	bufB   DMABuffer
	sizer  TripSizer
	ecr    EventCounterReader
	rate   RateReader
	sink   chan<- []byte
	tc     *threadcontrol.ThreadControl
	name   string

	activeIsA   bool
	startOffA   uint64
	startOffB   uint64
	lastEventCounter uint32
	trip        uint64

	Counters Counters

	// ForcedTriggerHz, if non-zero, switches the acquirer from hardware
	// event-counter polling to explicit periodic trigger writes.
	ForcedTriggerHz float64
	forceWrite      func() error
}

// NewAcquirer constructs an Acquirer for one board.
func NewAcquirer(rbID uint8, bufA, bufB DMABuffer, sizer TripSizer, ecr EventCounterReader, rate RateReader, sink chan<- []byte, tc *threadcontrol.ThreadControl, log *slog.Logger) *Acquirer {
	if log == nil {
		log = slog.Default()
	}
	return &Acquirer{
		RBID: rbID, log: log, bufA: bufA, bufB: bufB, sizer: sizer,
		ecr: ecr, rate: rate, sink: sink, tc: tc,
		name:      slogAcquirerName(rbID),
		activeIsA: true,
	}
}

func slogAcquirerName(rbID uint8) string {
	return "rbacquirer." + string(rune('0'+rbID/10)) + string(rune('0'+rbID%10))
}

// SetForceWrite installs the explicit-trigger write used in forced-trigger
// mode.
func (a *Acquirer) SetForceWrite(f func() error) { a.forceWrite = f }

// Start resets run-start state: event counter, DMA occupancy, and buffer
// start offsets. The start offset is a snapshot of whatever the hardware occupancy
// counter reads immediately after reset, not a hardcoded zero: a counter that
// does not settle at zero (or that free-runs underneath the reset) is still
// handled correctly by the subsequent current_occ - start_offset subtraction.
func (a *Acquirer) Start() error {
	a.lastEventCounter = 0
	a.Counters = Counters{}
	if err := a.bufA.ResetOccupancy(); err != nil {
		return err
	}
	if err := a.bufB.ResetOccupancy(); err != nil {
		return err
	}
	var err error
	if a.startOffA, err = a.bufA.Occupancy(); err != nil {
		return err
	}
	if a.startOffB, err = a.bufB.Occupancy(); err != nil {
		return err
	}
	a.activeIsA = true
	a.trip = a.sizer.TripSize(0, a.activeBuf().Capacity())
	return nil
}

func (a *Acquirer) activeBuf() DMABuffer {
	if a.activeIsA {
		return a.bufA
	}
	return a.bufB
}

func (a *Acquirer) activeStartOffset() uint64 {
	if a.activeIsA {
		return a.startOffA
	}
	return a.startOffB
}

// Run executes the acquisition loop until the ThreadControl stop flag is
// set. Intended to run in its own goroutine.
func (a *Acquirer) Run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for !a.tc.Stopped() {
		<-ticker.C
		a.tc.Heartbeat(a.name)
		if err := a.step(); err != nil {
			a.log.Warn("rbacquirer step failed", "rb_id", a.RBID, "error", err)
		}
	}
}

// step executes one loop iteration.
func (a *Acquirer) step() error {
	progressed, err := a.pollTrigger()
	if err != nil {
		return err
	}
	if !progressed {
		return nil
	}

	buf := a.activeBuf()
	occ, err := buf.Occupancy()
	if err != nil {
		return err
	}
	start := a.activeStartOffset()
	if occ < start {
		// Occupancy regressed: wrap or spurious reset. Treat as buffer-full
		// and force a flip of what the counter has recorded since it
		// restarted from zero, i.e. the range [0, occ).
		a.log.Warn("rbacquirer occupancy regressed, forcing flip", "rb_id", a.RBID)
		a.Counters.ForcedFlips++
		if a.activeIsA {
			a.startOffA = 0
		} else {
			a.startOffB = 0
		}
		return a.flip(buf, occ)
	}

	current := occ - start
	if current >= a.trip {
		return a.flip(buf, occ)
	}
	return nil
}

func (a *Acquirer) flip(buf DMABuffer, occ uint64) error {
	start := a.activeStartOffset()
	block, err := buf.ReadRange(start, occ)
	if err != nil {
		return err
	}
	select {
	case a.sink <- block:
	default:
		a.log.Warn("rbacquirer sink channel full, dropping block", "rb_id", a.RBID)
	}

	if err := buf.ResetOccupancy(); err != nil {
		return err
	}
	postResetOcc, err := buf.Occupancy()
	if err != nil {
		return err
	}
	if a.activeIsA {
		a.startOffA = postResetOcc
	} else {
		a.startOffB = postResetOcc
	}
	a.activeIsA = !a.activeIsA

	rate := 0.0
	if a.rate != nil {
		rate, _ = a.rate.TriggerRateHz()
	}
	a.trip = a.sizer.TripSize(rate, a.activeBuf().Capacity())
	return nil
}

// pollTrigger reports whether the hardware event counter (or, in
// forced-trigger mode, the local clock) has advanced since the last check.
func (a *Acquirer) pollTrigger() (bool, error) {
	if a.ForcedTriggerHz > 0 {
		if a.forceWrite != nil {
			if err := a.forceWrite(); err != nil {
				return false, err
			}
		}
		a.Counters.EventsSeen++
		return true, nil
	}

	ec, err := a.ecr.EventCounter()
	if err != nil {
		return false, err
	}
	if ec == a.lastEventCounter {
		return false, nil
	}
	gap := ec - a.lastEventCounter
	if gap > 1 {
		a.Counters.EventsSkipped += uint64(gap - 1)
	}
	a.Counters.EventsSeen += uint64(gap)
	a.lastEventCounter = ec
	return true, nil
}
