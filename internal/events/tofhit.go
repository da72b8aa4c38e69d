// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package events

import "github.com/gaps-tof/liftof-cc/internal/codec"

// TofHitBodySize is the fixed body length of a TofHit record (26 bytes),
// bracketed by a 2-byte head and 2-byte tail for a 30-byte record on the
// wire. Half-precision floats keep the record compact.
const TofHitBodySize = 26

// TofHit is the reconstructed, paddle-level hit: the two channel-level
// extractions from a paddle's A and B ends, combined and
// reconstructed into position/time-of-flight quantities.
// Every float field is stored at half precision; this is the quantity
// that actually crosses the wire to downstream consumers, not RBEvent's
// full-precision waveform.
type TofHit struct {
	PaddleID    uint16
	EventIDLow  uint16
	TimeA       float32
	TimeB       float32
	PeakA       float32
	PeakB       float32
	ChargeA     float32
	ChargeB     float32
	BaselineA   float32
	BaselineB   float32
	PosAcross   float32
	T0          float32
	Version     uint8
	Flags       uint8
}

// Hit status bits carried in TofHit.Flags.
const (
	TofHitFlagValid       uint8 = 1 << 0
	TofHitFlagSingleEnded uint8 = 1 << 1 // only one paddle end had a usable hit
)

// Encode writes the fixed-size body (TofHitBodySize bytes).
func (h TofHit) Encode() []byte {
	body := make([]byte, TofHitBodySize)
	off := 0
	codec.PutU16(body, off, h.PaddleID)
	off += 2
	codec.PutU16(body, off, h.EventIDLow)
	off += 2
	for _, v := range []float32{h.TimeA, h.TimeB, h.PeakA, h.PeakB, h.ChargeA, h.ChargeB, h.BaselineA, h.BaselineB, h.PosAcross, h.T0} {
		codec.PutF16(body, off, v)
		off += 2
	}
	body[off] = h.Version
	off++
	body[off] = h.Flags
	return body
}

// DecodeTofHitBody decodes a fixed-size TofHit body.
func DecodeTofHitBody(body []byte) (TofHit, error) {
	if len(body) != TofHitBodySize {
		return TofHit{}, codec.ErrWrongByteSize
	}
	var h TofHit
	off := 0
	h.PaddleID = codec.GetU16(body, off)
	off += 2
	h.EventIDLow = codec.GetU16(body, off)
	off += 2
	vals := make([]float32, 10)
	for i := range vals {
		vals[i] = codec.GetF16(body, off)
		off += 2
	}
	h.TimeA, h.TimeB, h.PeakA, h.PeakB = vals[0], vals[1], vals[2], vals[3]
	h.ChargeA, h.ChargeB, h.BaselineA, h.BaselineB = vals[4], vals[5], vals[6], vals[7]
	h.PosAcross, h.T0 = vals[8], vals[9]
	h.Version = body[off]
	off++
	h.Flags = body[off]
	return h, nil
}

// EncodeFixed emits the full fixed-layout record: head, body, tail.
func (h TofHit) EncodeFixed() []byte {
	out := make([]byte, 2+TofHitBodySize+2)
	codec.PutU16(out, 0, codec.HeadMarker)
	copy(out[2:], h.Encode())
	codec.PutU16(out, 2+TofHitBodySize, codec.TailMarker)
	return out
}

// DecodeTofHitFixed reads a fixed-layout TofHit record starting at *cursor,
// using codec.VerifyAt's head/tail bracketing contract.
func DecodeTofHitFixed(data []byte, cursor *int) (TofHit, error) {
	c := *cursor
	_, err := codec.VerifyAt(data, &c, 2+TofHitBodySize)
	if err != nil {
		return TofHit{}, err
	}
	h, err := DecodeTofHitBody(data[c : c+TofHitBodySize])
	if err != nil {
		return TofHit{}, err
	}
	*cursor = c + TofHitBodySize + 2
	return h, nil
}
