// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbevent

import (
	"fmt"

	"github.com/gaps-tof/liftof-cc/internal/events"
)

// CalibrationTable holds one board's per-channel DRS4 calibration
// constants: per-sample pedestal offsets, dips, and voltage increments,
// plus per-sample time-bin widths.
type CalibrationTable struct {
	RBID        uint8
	VOffsets    [events.MaxChannels][events.SamplesPerChannel]float32
	VDips       [events.MaxChannels][events.SamplesPerChannel]float32
	VIncrements [events.MaxChannels][events.SamplesPerChannel]float32
	TBinWidths  [events.MaxChannels][events.SamplesPerChannel]float32
}

// Calibrate fills Voltages and Nanoseconds on every waveform of e in place,
// using the standard DRS4 stop-cell-relative calibration formulas:
//
//	voltages[k]    = (adc[k] - v_off[(k+stop)%1024] - v_dip[k]) * v_inc[(k+stop)%1024]
//	nanoseconds[0] = 0
//	nanoseconds[k] = nanoseconds[k-1] + tbin[(k-1+stop)%1024]
func (t CalibrationTable) Calibrate(e *events.RBEvent) error {
	if t.RBID != e.BoardID {
		return fmt.Errorf("rbevent: calibration table for RB %d does not match event's RB %d", t.RBID, e.BoardID)
	}
	stop := int(e.StopCell)
	for i := range e.Waveforms {
		w := &e.Waveforms[i]
		ch := int(w.Channel)
		voff := t.VOffsets[ch]
		vdip := t.VDips[ch]
		vinc := t.VIncrements[ch]
		tbin := t.TBinWidths[ch]

		voltages := make([]float32, events.SamplesPerChannel)
		nanoseconds := make([]float32, events.SamplesPerChannel)
		for k := 0; k < events.SamplesPerChannel; k++ {
			idx := (k + stop) % events.SamplesPerChannel
			voltages[k] = (float32(w.ADC[k]) - voff[idx] - vdip[k]) * vinc[idx]
		}
		nanoseconds[0] = 0
		for k := 1; k < events.SamplesPerChannel; k++ {
			prevIdx := (k - 1 + stop) % events.SamplesPerChannel
			nanoseconds[k] = nanoseconds[k-1] + tbin[prevIdx]
		}
		w.Voltages = voltages
		w.Nanoseconds = nanoseconds
	}
	return nil
}
