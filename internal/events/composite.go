// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package events

import "github.com/gaps-tof/liftof-cc/internal/codec"

// CompositeEvent is the event builder's output: one MTB trigger joined with
// the RB events (and derived hits) the mapping tables predicted for it.
// MissingRBs lists the boards expected but not joined by the time the
// event left the cache.
type CompositeEvent struct {
	EventID    uint32
	MTB        MTBEvent
	RBs        []RBEvent
	Hits       []TofHit
	MissingRBs []uint8
}

// EventsPerRB returns a lookup from board ID to its joined RBEvent.
func (c CompositeEvent) EventsPerRB() map[uint8]RBEvent {
	out := make(map[uint8]RBEvent, len(c.RBs))
	for _, rb := range c.RBs {
		out[rb.BoardID] = rb
	}
	return out
}

// Complete reports whether every expected board was joined.
func (c CompositeEvent) Complete() bool {
	return len(c.MissingRBs) == 0
}

// compositeHeaderSize is the byte length of CompositeEvent's fixed fields,
// excluding the nested MTB/RB/hit payloads that follow.
const compositeHeaderSize = 4 + 2 + 2

// Encode serializes the composite as an Envelope body: fixed header, the
// nested MTB envelope, one nested RB envelope per joined board, one fixed
// TofHit record per reconstructed hit, and the missing-board list.
func (c CompositeEvent) Encode() []byte {
	mtbBytes := c.MTB.EncodeEnvelope()
	rbBytes := make([][]byte, len(c.RBs))
	for i, rb := range c.RBs {
		rbBytes[i] = rb.EncodeEnvelope()
	}
	hitBytes := make([][]byte, len(c.Hits))
	for i, h := range c.Hits {
		hitBytes[i] = h.EncodeFixed()
	}

	total := compositeHeaderSize + len(mtbBytes)
	for _, b := range rbBytes {
		total += len(b)
	}
	for _, b := range hitBytes {
		total += len(b)
	}
	total += len(c.MissingRBs)

	body := make([]byte, total)
	off := 0
	codec.PutU32(body, off, c.EventID)
	off += 4
	codec.PutU16(body, off, uint16(len(c.RBs)))
	off += 2
	codec.PutU16(body, off, uint16(len(c.Hits)))
	off += 2
	off += copy(body[off:], mtbBytes)
	for _, b := range rbBytes {
		off += copy(body[off:], b)
	}
	for _, b := range hitBytes {
		off += copy(body[off:], b)
	}
	body[off] = byte(len(c.MissingRBs))
	off++
	for _, rb := range c.MissingRBs {
		body[off] = rb
		off++
	}
	return body
}

// EncodeEnvelope wraps the composite in a framed Envelope.
func (c CompositeEvent) EncodeEnvelope() []byte {
	return codec.Envelope{Version: 1, Type: codec.KindComposite, Body: c.Encode()}.Encode()
}

// DecodeCompositeBody decodes a composite event from an Envelope body.
func DecodeCompositeBody(body []byte) (CompositeEvent, error) {
	if len(body) < compositeHeaderSize {
		return CompositeEvent{}, codec.ErrStreamTooShort
	}
	var c CompositeEvent
	off := 0
	c.EventID = codec.GetU32(body, off)
	off += 4
	nRB := int(codec.GetU16(body, off))
	off += 2
	nHits := int(codec.GetU16(body, off))
	off += 2

	cursor := off
	mtb, err := DecodeMTBEvent(body, &cursor)
	if err != nil {
		return CompositeEvent{}, err
	}
	c.MTB = mtb

	for i := 0; i < nRB; i++ {
		rb, err := DecodeRBEvent(body, &cursor)
		if err != nil {
			return CompositeEvent{}, err
		}
		c.RBs = append(c.RBs, rb)
	}
	for i := 0; i < nHits; i++ {
		h, err := DecodeTofHitFixed(body, &cursor)
		if err != nil {
			return CompositeEvent{}, err
		}
		c.Hits = append(c.Hits, h)
	}
	if cursor >= len(body) {
		return CompositeEvent{}, codec.ErrStreamTooShort
	}
	nMissing := int(body[cursor])
	cursor++
	if len(body) < cursor+nMissing {
		return CompositeEvent{}, codec.ErrStreamTooShort
	}
	c.MissingRBs = append(c.MissingRBs, body[cursor:cursor+nMissing]...)
	return c, nil
}

// DecodeCompositeEvent reads one framed composite event starting at *cursor.
func DecodeCompositeEvent(data []byte, cursor *int) (CompositeEvent, error) {
	env, err := codec.DecodeEnvelope(data, cursor)
	if err != nil {
		return CompositeEvent{}, err
	}
	if env.Type != codec.KindComposite {
		return CompositeEvent{}, codec.ErrIncorrectType
	}
	return DecodeCompositeBody(env.Body)
}
