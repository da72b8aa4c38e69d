// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbacquirer

import (
	"context"
	"log/slog"
	"time"
)

// Watcher samples a board's DMA occupancy on a fixed period without
// draining it, for diagnostics: observe fill level under load without
// disturbing the acquisition loop's own occupancy bookkeeping.
type Watcher struct {
	rbID uint8
	bufA DMABuffer
	bufB DMABuffer
	log  *slog.Logger
}

// NewWatcher constructs a Watcher over the same two buffers an Acquirer
// owns. It never calls ResetOccupancy or ReadRange; it only observes.
func NewWatcher(rbID uint8, bufA, bufB DMABuffer, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{rbID: rbID, bufA: bufA, bufB: bufB, log: log}
}

// Sample is one occupancy observation of both buffers.
type Sample struct {
	RBID          uint8
	Timestamp     time.Time
	OccupancyA    uint64
	OccupancyB    uint64
	CapacityA     uint64
	CapacityB     uint64
}

// FractionA reports buffer A's fill fraction in [0,1].
func (s Sample) FractionA() float64 {
	if s.CapacityA == 0 {
		return 0
	}
	return float64(s.OccupancyA) / float64(s.CapacityA)
}

// FractionB reports buffer B's fill fraction in [0,1].
func (s Sample) FractionB() float64 {
	if s.CapacityB == 0 {
		return 0
	}
	return float64(s.OccupancyB) / float64(s.CapacityB)
}

// Sample takes one snapshot of both buffers' occupancy.
func (w *Watcher) Sample() (Sample, error) {
	occA, err := w.bufA.Occupancy()
	if err != nil {
		return Sample{}, err
	}
	occB, err := w.bufB.Occupancy()
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		RBID: w.rbID, Timestamp: time.Now(),
		OccupancyA: occA, OccupancyB: occB,
		CapacityA: w.bufA.Capacity(), CapacityB: w.bufB.Capacity(),
	}, nil
}

// Run samples on the given period, invoking emit with each sample, until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, period time.Duration, emit func(Sample)) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := w.Sample()
			if err != nil {
				w.log.Warn("watch-buffer sample failed", "rb_id", w.rbID, "error", err)
				continue
			}
			emit(s)
		}
	}
}
