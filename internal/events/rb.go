// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package events

import "github.com/gaps-tof/liftof-cc/internal/codec"

// MaxChannels is the number of digitizer channels on one readout board.
const MaxChannels = 9

// SamplesPerChannel is the digitizer's region-of-interest sample depth.
const SamplesPerChannel = 1024

// RBStatus flags the parse-time health of an RBEvent.
type RBStatus uint8

const (
	// RBStatusOK reports a clean parse with no framing or hardware
	// complaints.
	RBStatusOK RBStatus = iota
	// RBStatusTailInvalid reports the trailing tail marker didn't match,
	// a framing error. The CRC32 field itself is never validated — it
	// passes through unchecked — so this is not a checksum failure.
	RBStatusTailInvalid
	// RBStatusDRSLost reports the hardware status byte flagged a DRS4
	// channel drop mid-readout.
	RBStatusDRSLost
	// RBStatusBroken reports a fixed-layout violation (bad head/tail/length).
	RBStatusBroken
)

// ChannelWaveform holds one channel's raw samples and, once calibrated, the
// derived voltage/time axes.
type ChannelWaveform struct {
	Channel     uint8
	ADC         [SamplesPerChannel]int16
	Voltages    []float32 // nil until calibrated
	Nanoseconds []float32 // nil until calibrated
}

// RBEvent is one readout board's waveform record for a single trigger.
type RBEvent struct {
	BoardID      uint8
	ChannelMask  uint16
	EventCounter uint32
	StopCell     uint16
	Timestamp48  uint64
	FirmwareHash uint32
	Waveforms    []ChannelWaveform
	Status       RBStatus
}

// ActiveChannels returns the channel numbers (0-indexed) set in ChannelMask.
func (e RBEvent) ActiveChannels() []uint8 {
	var chans []uint8
	for ch := uint8(0); ch < MaxChannels; ch++ {
		if e.ChannelMask&(1<<ch) != 0 {
			chans = append(chans, ch)
		}
	}
	return chans
}

// rbHeaderSize is the byte length of an RBEvent's fixed fields, excluding
// the per-channel waveform blocks that follow.
const rbHeaderSize = 1 + 2 + 4 + 2 + 6 + 4 + 1

// Encode serializes the event (without raw ADC payload) as an Envelope body.
// Only channel metadata and calibrated axes travel on the wire; raw ADC
// counts stay local to the acquiring process.
func (e RBEvent) Encode() []byte {
	size := rbHeaderSize
	for _, w := range e.Waveforms {
		size += 1 + 2 + 4*len(w.Voltages) + 4*len(w.Nanoseconds)
	}
	body := make([]byte, size)
	off := 0
	body[off] = e.BoardID
	off++
	codec.PutU16(body, off, e.ChannelMask)
	off += 2
	codec.PutU32(body, off, e.EventCounter)
	off += 4
	codec.PutU16(body, off, e.StopCell)
	off += 2
	codec.PutU32(body, off, uint32(e.Timestamp48>>16))
	off += 4
	codec.PutU16(body, off, uint16(e.Timestamp48))
	off += 2
	codec.PutU32(body, off, e.FirmwareHash)
	off += 4
	body[off] = byte(e.Status)
	off++
	for _, w := range e.Waveforms {
		body[off] = w.Channel
		off++
		codec.PutU16(body, off, uint16(len(w.Voltages)))
		off += 2
		for _, v := range w.Voltages {
			codec.PutU32(body, off, float32bits(v))
			off += 4
		}
		for _, ns := range w.Nanoseconds {
			codec.PutU32(body, off, float32bits(ns))
			off += 4
		}
	}
	return body
}

// DecodeRBEventBody decodes a calibrated RBEvent from an Envelope body.
func DecodeRBEventBody(body []byte) (RBEvent, error) {
	if len(body) < rbHeaderSize {
		return RBEvent{}, codec.ErrStreamTooShort
	}
	var e RBEvent
	off := 0
	e.BoardID = body[off]
	off++
	e.ChannelMask = codec.GetU16(body, off)
	off += 2
	e.EventCounter = codec.GetU32(body, off)
	off += 4
	e.StopCell = codec.GetU16(body, off)
	off += 2
	hi := uint64(codec.GetU32(body, off))
	off += 4
	lo := uint64(codec.GetU16(body, off))
	off += 2
	e.Timestamp48 = hi<<16 | lo
	e.FirmwareHash = codec.GetU32(body, off)
	off += 4
	e.Status = RBStatus(body[off])
	off++
	for off < len(body) {
		if off+3 > len(body) {
			return RBEvent{}, codec.ErrStreamTooShort
		}
		ch := body[off]
		off++
		n := int(codec.GetU16(body, off))
		off += 2
		if off+8*n > len(body) {
			return RBEvent{}, codec.ErrStreamTooShort
		}
		w := ChannelWaveform{Channel: ch, Voltages: make([]float32, n), Nanoseconds: make([]float32, n)}
		for i := 0; i < n; i++ {
			w.Voltages[i] = float32frombits(codec.GetU32(body, off))
			off += 4
		}
		for i := 0; i < n; i++ {
			w.Nanoseconds[i] = float32frombits(codec.GetU32(body, off))
			off += 4
		}
		e.Waveforms = append(e.Waveforms, w)
	}
	return e, nil
}

// EncodeEnvelope wraps the event in a framed Envelope.
func (e RBEvent) EncodeEnvelope() []byte {
	return codec.Envelope{Version: 1, Type: codec.KindRBEvent, Body: e.Encode()}.Encode()
}

// DecodeRBEvent reads one framed RB event starting at *cursor.
func DecodeRBEvent(data []byte, cursor *int) (RBEvent, error) {
	env, err := codec.DecodeEnvelope(data, cursor)
	if err != nil {
		return RBEvent{}, err
	}
	if env.Type != codec.KindRBEvent {
		return RBEvent{}, codec.ErrIncorrectType
	}
	return DecodeRBEventBody(env.Body)
}
