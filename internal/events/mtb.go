// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package events defines the core's typed records: the MTB
// trigger event, the RB waveform event, the compact TOF hit, and the joined
// composite event, along with their byte-exact codecs. Layout and field
// order follow a manual offset parsing style: a fixed header followed by
// a variable tail.
package events

import (
	"github.com/gaps-tof/liftof-cc/internal/codec"
)

// MTBEvent is the fixed-layout trigger record produced by the master trigger
// board. LTBHitMasks holds one 16-bit channel-hit word per
// triggered LTB, in the order the MTB reader parsed them from the DAQ FIFO
// tail; resolving a word's index to a physical (DSI, J) pair is the job of
// the static mapping tables in internal/mapping, not of this type.
type MTBEvent struct {
	EventID           uint32
	TimestampMTB      uint32
	TimestampTIU      uint32
	TimestampTIUGPS32 uint32
	TimestampTIUGPS16 uint16
	TriggerSourceMask uint16
	MTBLinkMask       uint64
	LTBHitMasks       []uint16
}

// TriggerHit is one (LTB index, channel) pair extracted from an LTB hit
// mask word, the raw material for the (DSI, J, channel) triples the
// mapping tables resolve it into.
type TriggerHit struct {
	LTBIndex int
	Channel  uint8
}

// channelsPerLTB is the number of independent, single-bit channels packed
// into each LTBHitMasks word.
const channelsPerLTB = 16

// TriggerHits decodes every LTB hit-mask word into its set bits: each of
// the 16 bits is one independent channel, not a paired threshold encoding.
func (e MTBEvent) TriggerHits() []TriggerHit {
	var hits []TriggerHit
	for ltbIdx, mask := range e.LTBHitMasks {
		for ch := uint8(0); ch < channelsPerLTB; ch++ {
			if mask&(1<<ch) == 0 {
				continue
			}
			hits = append(hits, TriggerHit{LTBIndex: ltbIdx, Channel: ch})
		}
	}
	return hits
}

// mtbBodySize is the byte length of the fixed portion of an encoded MTB
// event body, preceding the variable hit-mask tail.
const mtbBodySize = 4 + 4 + 4 + 4 + 2 + 2 + 8

// Encode serializes the event as an Envelope body.
func (e MTBEvent) Encode() []byte {
	body := make([]byte, mtbBodySize+2+2*len(e.LTBHitMasks))
	off := 0
	codec.PutU32(body, off, e.EventID)
	off += 4
	codec.PutU32(body, off, e.TimestampMTB)
	off += 4
	codec.PutU32(body, off, e.TimestampTIU)
	off += 4
	codec.PutU32(body, off, e.TimestampTIUGPS32)
	off += 4
	codec.PutU16(body, off, e.TimestampTIUGPS16)
	off += 2
	codec.PutU16(body, off, e.TriggerSourceMask)
	off += 2
	codec.PutU64(body, off, e.MTBLinkMask)
	off += 8
	codec.PutU16(body, off, uint16(len(e.LTBHitMasks)))
	off += 2
	for _, word := range e.LTBHitMasks {
		codec.PutU16(body, off, word)
		off += 2
	}
	return body
}

// DecodeMTBEventBody decodes an MTB event from an Envelope body produced by Encode.
func DecodeMTBEventBody(body []byte) (MTBEvent, error) {
	if len(body) < mtbBodySize+2 {
		return MTBEvent{}, codec.ErrStreamTooShort
	}
	var e MTBEvent
	off := 0
	e.EventID = codec.GetU32(body, off)
	off += 4
	e.TimestampMTB = codec.GetU32(body, off)
	off += 4
	e.TimestampTIU = codec.GetU32(body, off)
	off += 4
	e.TimestampTIUGPS32 = codec.GetU32(body, off)
	off += 4
	e.TimestampTIUGPS16 = codec.GetU16(body, off)
	off += 2
	e.TriggerSourceMask = codec.GetU16(body, off)
	off += 2
	e.MTBLinkMask = codec.GetU64(body, off)
	off += 8
	n := int(codec.GetU16(body, off))
	off += 2
	if len(body) < off+2*n {
		return MTBEvent{}, codec.ErrStreamTooShort
	}
	e.LTBHitMasks = make([]uint16, n)
	for i := 0; i < n; i++ {
		e.LTBHitMasks[i] = codec.GetU16(body, off)
		off += 2
	}
	return e, nil
}

// EncodeEnvelope wraps the event in a framed Envelope.
func (e MTBEvent) EncodeEnvelope() []byte {
	return codec.Envelope{Version: 1, Type: codec.KindMTBEvent, Body: e.Encode()}.Encode()
}

// DecodeMTBEvent reads one framed MTB event starting at *cursor.
func DecodeMTBEvent(data []byte, cursor *int) (MTBEvent, error) {
	env, err := codec.DecodeEnvelope(data, cursor)
	if err != nil {
		return MTBEvent{}, err
	}
	if env.Type != codec.KindMTBEvent {
		return MTBEvent{}, codec.ErrIncorrectType
	}
	return DecodeMTBEventBody(env.Body)
}
