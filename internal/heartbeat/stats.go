// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package heartbeat publishes periodic, typed status records from each
// long-lived worker, scheduled on a gocron job.
package heartbeat

import "math"

// RunningStats is an O(1)-per-sample online mean/variance accumulator,
// used for the rate and register statistics carried in moni/heartbeat
// records. It folds in one sample at a time with Welford's algorithm
// rather than buffering a window and recomputing batch statistics.
type RunningStats struct {
	count int64
	mean  float64
	m2    float64
	min   float64
	max   float64
}

// NewRunningStats returns an accumulator with no samples yet.
func NewRunningStats() *RunningStats {
	return &RunningStats{min: math.Inf(1), max: math.Inf(-1)}
}

// Push folds one new sample into the accumulator.
func (s *RunningStats) Push(x float64) {
	s.count++
	delta := x - s.mean
	s.mean += delta / float64(s.count)
	delta2 := x - s.mean
	s.m2 += delta * delta2
	if x < s.min {
		s.min = x
	}
	if x > s.max {
		s.max = x
	}
}

// Count returns the number of samples folded in so far.
func (s *RunningStats) Count() int64 { return s.count }

// Mean returns the running mean, or 0 if no samples were pushed.
func (s *RunningStats) Mean() float64 { return s.mean }

// Variance returns the running (population) variance, or 0 for fewer than
// two samples.
func (s *RunningStats) Variance() float64 {
	if s.count < 2 {
		return 0
	}
	return s.m2 / float64(s.count)
}

// StdDev returns the running standard deviation.
func (s *RunningStats) StdDev() float64 { return math.Sqrt(s.Variance()) }

// Min returns the smallest sample seen, or +Inf if none.
func (s *RunningStats) Min() float64 { return s.min }

// Max returns the largest sample seen, or -Inf if none.
func (s *RunningStats) Max() float64 { return s.max }

// Reset clears the accumulator back to its zero state.
func (s *RunningStats) Reset() {
	s.count = 0
	s.mean = 0
	s.m2 = 0
	s.min = math.Inf(1)
	s.max = math.Inf(-1)
}
