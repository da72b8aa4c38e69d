// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package events

import "math"

// float32bits and float32frombits carry calibrated axes (volts,
// nanoseconds) at full precision; PutF16/GetF16 in internal/codec is
// reserved for TofHit's deliberately lossy compact fields.
func float32bits(v float32) uint32     { return math.Float32bits(v) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }
