// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package eventbuilder

import (
	"log/slog"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/mapping"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
)

// Builder is the single-owner event-builder worker. Its cache and ordered-ID list are touched only from
// the Run goroutine, so a plain map suffices — there is no second writer to
// guard against.
type Builder struct {
	mteIn <-chan events.MTBEvent
	rbIn  <-chan RBArrival
	out   chan<- events.CompositeEvent

	tables *mapping.Tables
	cfg    config.BuilderConfig
	tc     *threadcontrol.ThreadControl
	log    *slog.Logger

	cache map[uint32]*cacheEntry
	order []uint32

	haveLastEmitted bool
	lastEmitted     uint32

	Counters Counters
}

// New constructs a Builder.
func New(cfg config.BuilderConfig, tables *mapping.Tables, mteIn <-chan events.MTBEvent, rbIn <-chan RBArrival, out chan<- events.CompositeEvent, tc *threadcontrol.ThreadControl, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MTBBatchSize <= 0 {
		cfg.MTBBatchSize = 1
	}
	if cfg.RBBatchSize <= 0 {
		cfg.RBBatchSize = 40
	}
	return &Builder{
		mteIn: mteIn, rbIn: rbIn, out: out,
		tables: tables, cfg: cfg, tc: tc, log: log,
		cache: make(map[uint32]*cacheEntry),
	}
}

// Run executes the builder loop until the ThreadControl stop flag fires,
// then flushes the cache.
func (b *Builder) Run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for !b.tc.Stopped() {
		<-ticker.C
		b.tc.Heartbeat("eventbuilder")
		b.step()
	}
	b.flush()
}

// step executes one loop iteration.
func (b *Builder) step() {
	b.drainMTB()
	b.drainRB()
	b.walk(false)
}

// drainMTB drains up to cfg.MTBBatchSize MTB events.
func (b *Builder) drainMTB() {
	for i := 0; i < b.cfg.MTBBatchSize; i++ {
		var mte events.MTBEvent
		select {
		case mte = <-b.mteIn:
		default:
			return
		}
		b.Counters.ReceivedMTB++

		if b.haveLastEmitted && mte.EventID != b.lastEmitted+1 {
			b.Counters.GapCount++
		}

		entry, ok := b.cache[mte.EventID]
		if !ok {
			entry = &cacheEntry{eventID: mte.EventID, rbs: make(map[uint8]events.RBEvent), arrival: time.Now()}
			b.cache[mte.EventID] = entry
		}
		entry.mte = mte
		entry.haveMTE = true
		b.order = append(b.order, mte.EventID)
	}
}

// drainRB drains up to cfg.RBBatchSize RB events.
func (b *Builder) drainRB() {
	for i := 0; i < b.cfg.RBBatchSize; i++ {
		var arr RBArrival
		select {
		case arr = <-b.rbIn:
		default:
			return
		}
		b.Counters.ReceivedRB++

		if oldest, ok := b.oldestCachedID(); ok && idOlder(arr.EventID, oldest) {
			b.Counters.DiscardedRB++
			continue
		}

		entry, ok := b.cache[arr.EventID]
		if !ok {
			// RB-first arrival: create a placeholder, not yet in the
			// ordered list since emission order follows MTB arrival order.
			entry = &cacheEntry{eventID: arr.EventID, rbs: make(map[uint8]events.RBEvent), arrival: time.Now()}
			b.cache[arr.EventID] = entry
		}
		if _, dup := entry.rbs[arr.Event.BoardID]; dup {
			b.Counters.Mangled++
		}
		entry.rbs[arr.Event.BoardID] = arr.Event
	}
}

// oldestCachedID returns the smallest event ID currently held in the cache.
func (b *Builder) oldestCachedID() (uint32, bool) {
	var oldest uint32
	found := false
	for id := range b.cache {
		if !found || idOlder(id, oldest) {
			oldest = id
			found = true
		}
	}
	return oldest, found
}

// idOlder reports whether a precedes b in run-wide sequence, tolerating a
// single 32-bit wraparound the way the run-wide event ID space does.
func idOlder(a, b uint32) bool {
	return int32(a-b) < 0
}

// walk iterates the ordered ID list and emits every entry that is complete
// or timed out. When force is true (run-stop), every
// entry still in the cache is emitted, marked timed out, regardless of
// completeness.
func (b *Builder) walk(force bool) {
	remaining := b.order[:0]
	now := time.Now()
	timeout := time.Duration(b.cfg.TimeoutSec * float64(time.Second))

	for _, id := range b.order {
		entry, ok := b.cache[id]
		if !ok {
			continue
		}
		switch {
		case force:
			b.emit(entry, true)
			delete(b.cache, id)
		case b.isComplete(entry):
			b.emit(entry, false)
			delete(b.cache, id)
		case timeout > 0 && now.Sub(entry.arrival) >= timeout:
			b.emit(entry, true)
			delete(b.cache, id)
		default:
			remaining = append(remaining, id)
		}
	}
	b.order = remaining
}

// flush drains the cache fully on run-stop.
func (b *Builder) flush() {
	b.walk(true)
	// Any RB-first placeholders never reached by an MTB event still sit in
	// the cache (they were never added to the ordered list); emit them too
	// so no joined data is silently discarded on shutdown.
	for id, entry := range b.cache {
		b.emit(entry, true)
		delete(b.cache, id)
	}
}

// isComplete decides entry completeness per the configured build
// strategy.
func (b *Builder) isComplete(entry *cacheEntry) bool {
	switch b.cfg.Strategy {
	case config.BuildStrategyWaitForN:
		return len(entry.rbs) >= b.cfg.WaitForN
	case config.BuildStrategyAdaptiveThorough:
		expected := b.tables.ExpectedRBs(entry.mte)
		for _, key := range expected {
			rb, ok := entry.rbs[key.RBID]
			if !ok {
				return false
			}
			if !channelActive(rb, key.RBChannel) {
				return false
			}
		}
		return true
	case config.BuildStrategyAdaptiveGreedy:
		expected := b.tables.ExpectedRBIDs(entry.mte)
		return len(entry.rbs) >= len(expected)+b.cfg.GreedyExtra
	default: // BuildStrategyAdaptive
		expected := b.tables.ExpectedRBIDs(entry.mte)
		return len(entry.rbs) >= len(expected)
	}
}

func channelActive(rb events.RBEvent, channel uint8) bool {
	for _, ch := range rb.ActiveChannels() {
		if ch == channel {
			return true
		}
	}
	return false
}

// emit frames a cache entry into a composite event and sends it downstream.
func (b *Builder) emit(entry *cacheEntry, timedOut bool) {
	c := events.CompositeEvent{EventID: entry.eventID, MTB: entry.mte}
	for _, rb := range entry.rbs {
		c.RBs = append(c.RBs, rb)
	}

	expectedIDs := b.tables.ExpectedRBIDs(entry.mte)
	for _, rbID := range expectedIDs {
		if _, ok := entry.rbs[rbID]; !ok {
			c.MissingRBs = append(c.MissingRBs, rbID)
		}
	}

	select {
	case b.out <- c:
	default:
		b.log.Warn("eventbuilder sink channel full, dropping composite event", "event_id", c.EventID)
	}

	b.lastEmitted = entry.eventID
	b.haveLastEmitted = true
	if timedOut {
		b.Counters.TimedOut++
		if len(c.MissingRBs) > 0 {
			_, missing := b.tables.ExpectedRBsDebug(entry.mte)
			b.log.Warn("eventbuilder timed out with missing hits", "event_id", c.EventID, "missing_hits", len(missing))
		}
	} else {
		b.Counters.Sent++
	}
}
