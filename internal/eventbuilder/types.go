// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package eventbuilder joins MTB trigger events with the RB waveform events
// predicted for them into composite events, within a bounded latency
// budget.
package eventbuilder

import (
	"time"

	"github.com/gaps-tof/liftof-cc/internal/events"
)

// RBArrival carries one joined RBEvent tagged with the run-wide trigger
// event ID it answers (the same ID space as events.MTBEvent.EventID). The
// original driver assigns this ID when it pushes a per-board read request
// carrying the triggering event's ID (master_trigger.rs: "rb_cmd.payload =
// ev.event_id"); internal/rbevent's frame parser has no visibility into that
// request/response correlation, so the stage feeding this channel (the
// per-board acquirer/processor pair) is responsible for attaching it here.
type RBArrival struct {
	EventID uint32
	Event   events.RBEvent
}

// Counters tracks the builder's bookkeeping.
type Counters struct {
	ReceivedMTB  uint64
	ReceivedRB   uint64
	Sent         uint64
	TimedOut     uint64
	DiscardedRB  uint64 // RB arrival older than the oldest cached ID
	Mangled      uint64 // ID mismatch after a push (duplicate board join)
	GapCount     uint64 // MTB event ids observed out of sequence
}

// cacheEntry is one in-progress composite event.
type cacheEntry struct {
	eventID uint32
	mte     events.MTBEvent
	haveMTE bool
	rbs     map[uint8]events.RBEvent
	arrival time.Time
}
