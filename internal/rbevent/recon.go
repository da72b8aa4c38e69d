// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbevent

import "github.com/gaps-tof/liftof-cc/internal/events"

// PaddleGeometry carries the per-paddle constants §4.8's formulas need.
type PaddleGeometry struct {
	PaddleID     uint16
	LengthMM     float32 // L
	LightSpeed   float32 // c_p, cm/ns (effective light speed in paddle)
	CableLenMM   float32 // l_c
	CableSpeed   float32 // c_c
}

// CombineEnds reconstructs one events.TofHit from the two paddle-end hits
//:
//
//	pos_across = L/2 + (t_a - t_b) * c_p * 5   clamped to [0, L]
//	t0 = 1/2 * (t_a + t_b - L/(10*c_p) - 2*l_c/(10*c_c))
func CombineEnds(g PaddleGeometry, a, b ChannelHit) events.TofHit {
	posAcross := g.LengthMM/2 + (a.Time-b.Time)*g.LightSpeed*5
	if posAcross < 0 {
		posAcross = 0
	}
	if posAcross > g.LengthMM {
		posAcross = g.LengthMM
	}
	t0 := 0.5 * (a.Time + b.Time - g.LengthMM/(10*g.LightSpeed) - 2*g.CableLenMM/(10*g.CableSpeed))

	return events.TofHit{
		PaddleID:  g.PaddleID,
		TimeA:     a.Time,
		TimeB:     b.Time,
		PeakA:     a.Peak,
		PeakB:     b.Peak,
		ChargeA:   a.Charge,
		ChargeB:   b.Charge,
		BaselineA: a.Baseline,
		BaselineB: b.Baseline,
		PosAcross: posAcross,
		T0:        t0,
		Version:   1,
		Flags:     events.TofHitFlagValid,
	}
}

// CombineSingleEnd builds a hit from only one measured paddle end, flagged
// TofHitFlagSingleEnded, when the opposite end's channel did not yield a
// hit within the event.
func CombineSingleEnd(g PaddleGeometry, end ChannelHit, isA bool) events.TofHit {
	h := events.TofHit{
		PaddleID: g.PaddleID,
		Version:  1,
		Flags:    events.TofHitFlagValid | events.TofHitFlagSingleEnded,
	}
	if isA {
		h.TimeA, h.PeakA, h.ChargeA, h.BaselineA = end.Time, end.Peak, end.Charge, end.Baseline
	} else {
		h.TimeB, h.PeakB, h.ChargeB, h.BaselineB = end.Time, end.Peak, end.Charge, end.Baseline
	}
	return h
}
