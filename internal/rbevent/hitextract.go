// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbevent

import (
	"math"

	"github.com/gaps-tof/liftof-cc/internal/events"
)

// ChannelHit is one channel's extracted peak, the per-channel building
// block combined (see recon.go) into a paddle-level events.TofHit.
type ChannelHit struct {
	Channel   uint8
	Time      float32 // CFD-interpolated onset, ns
	Peak      float32 // peak height above baseline, mV
	Charge    float32 // integrated charge, pC
	Baseline  float32
}

// ExtractionParams configures the pedestal/peak-finding/CFD/charge pass.
type ExtractionParams struct {
	PedestalWindowStart int
	PedestalWindowEnd   int
	Threshold           float32 // mV above pedestal to start a peak
	MinWidth            int     // minimum contiguous over-threshold samples
	CFDFraction         float32
	IntegrationWindowNS float32
	ImpedanceOhms       float32
}

// DefaultExtractionParams are reasonable defaults for a DRS4-class RB
// channel digitized over a 1024-sample, ~0.1-0.5 ns/bin window.
var DefaultExtractionParams = ExtractionParams{
	PedestalWindowStart: 0,
	PedestalWindowEnd:   50,
	Threshold:           10,
	MinWidth:            3,
	CFDFraction:         0.5,
	IntegrationWindowNS: 40,
	ImpedanceOhms:       50,
}

// ExtractHits runs pedestal/peak/CFD/charge extraction on every calibrated
// channel of e and returns one ChannelHit per accepted peak. Channels without a calibrated Voltages/Nanoseconds axis are
// skipped.
func ExtractHits(e events.RBEvent, p ExtractionParams) []ChannelHit {
	var hits []ChannelHit
	for _, w := range e.Waveforms {
		if len(w.Voltages) == 0 || len(w.Nanoseconds) == 0 {
			continue
		}
		pedMean, pedRMS := pedestal(w.Voltages, p.PedestalWindowStart, p.PedestalWindowEnd)
		_ = pedRMS
		for _, peak := range findPeaks(w.Voltages, pedMean, p.Threshold, p.MinWidth) {
			onsetTime := cfdOnset(w.Voltages, w.Nanoseconds, peak, pedMean, p.CFDFraction)
			charge := integrateCharge(w.Voltages, w.Nanoseconds, peak.onsetIdx, p.IntegrationWindowNS, p.ImpedanceOhms, pedMean)
			hits = append(hits, ChannelHit{
				Channel:  w.Channel,
				Time:     onsetTime,
				Peak:     w.Voltages[peak.peakIdx] - pedMean,
				Charge:   charge,
				Baseline: pedMean,
			})
		}
	}
	return hits
}

func pedestal(v []float32, start, end int) (mean, rms float32) {
	if end > len(v) {
		end = len(v)
	}
	if start >= end {
		return 0, 0
	}
	var sum float64
	n := 0
	for i := start; i < end; i++ {
		sum += float64(v[i])
		n++
	}
	mean64 := sum / float64(n)
	var sq float64
	for i := start; i < end; i++ {
		d := float64(v[i]) - mean64
		sq += d * d
	}
	return float32(mean64), float32(math.Sqrt(sq / float64(n)))
}

type peakWindow struct {
	startIdx, peakIdx, onsetIdx int
}

// findPeaks applies a contiguous-over-threshold rule with a minimum-width
// parameter.
func findPeaks(v []float32, pedestal, threshold float32, minWidth int) []peakWindow {
	var peaks []peakWindow
	i := 0
	for i < len(v) {
		if v[i]-pedestal < threshold {
			i++
			continue
		}
		start := i
		peakIdx := i
		for i < len(v) && v[i]-pedestal >= threshold {
			if v[i] > v[peakIdx] {
				peakIdx = i
			}
			i++
		}
		if i-start >= minWidth {
			peaks = append(peaks, peakWindow{startIdx: start, peakIdx: peakIdx, onsetIdx: start})
		}
	}
	return peaks
}

// cfdOnset interpolates between the two samples straddling
// |cfd_frac * mean(peak ± 1)|.
func cfdOnset(v, t []float32, peak peakWindow, pedestal, frac float32) float32 {
	lo := peak.peakIdx - 1
	if lo < 0 {
		lo = 0
	}
	hi := peak.peakIdx + 1
	if hi >= len(v) {
		hi = len(v) - 1
	}
	localMean := (v[lo] + v[peak.peakIdx] + v[hi]) / 3
	target := pedestal + frac*(localMean-pedestal)

	for i := peak.startIdx; i < peak.peakIdx; i++ {
		if v[i] < target && v[i+1] >= target {
			span := v[i+1] - v[i]
			if span == 0 {
				return t[i]
			}
			frac := (target - v[i]) / span
			return t[i] + frac*(t[i+1]-t[i])
		}
	}
	return t[peak.peakIdx]
}

// integrateCharge integrates charge from onsetIdx over a fixed duration
// divided by impedance: Q = (1/R) * integral(V dt).
func integrateCharge(v, t []float32, onsetIdx int, windowNS, impedanceOhms, pedestal float32) float32 {
	if onsetIdx >= len(v) {
		return 0
	}
	endTime := t[onsetIdx] + windowNS
	var integral float32
	for i := onsetIdx; i < len(v)-1 && t[i] < endTime; i++ {
		dt := t[i+1] - t[i]
		avgV := ((v[i] - pedestal) + (v[i+1] - pedestal)) / 2
		integral += avgV * dt
	}
	// mV * ns / ohms = pC
	return integral / impedanceOhms
}
