// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package rbevent parses raw DMA-byte blocks from a readout board into
// typed events.RBEvent values, and optionally applies waveform calibration
// and hit extraction. Parsing uses a manual-offset style: a fixed header
// followed by variable per-channel blocks.
package rbevent

import (
	"encoding/binary"
	"fmt"

	"github.com/gaps-tof/liftof-cc/internal/codec"
	"github.com/gaps-tof/liftof-cc/internal/events"
)

const (
	roiLen            = events.SamplesPerChannel
	channelBlockBytes = 2 + 2*roiLen + 4 // head + samples + trailer
)

// statusBitDRSLost is the hardware status byte's DRS4-channel-drop flag.
const statusBitDRSLost = 0x01

// lengthFieldOffset is the byte offset of the frame's self-described total
// length, used to carve one DMA block into individual frames without first
// parsing each one (head marker + one status byte precede it).
const lengthFieldOffset = 3

// FrameByteLength reads a raw block's leading frame-length header field,
// reporting how many bytes the next frame occupies. It does not validate
// the frame otherwise; callers still run ParseFrame on the result.
func FrameByteLength(block []byte) (int, bool) {
	if len(block) < lengthFieldOffset+2 {
		return 0, false
	}
	return int(binary.LittleEndian.Uint16(block[lengthFieldOffset:])), true
}

// ParseFrame decodes one fixed-layout raw RB frame. Parse failures mark
// the returned event RBStatusBroken (RBStatusTailInvalid when only the tail
// marker is wrong) but still return its partial content
// rather than a zero value — callers should check Status, not just err.
func ParseFrame(frame []byte) (events.RBEvent, error) {
	const headerLen = 2 + 1 + 2 + 2 + 8 + 4 + 1 + 2 + 4 + 1 + 1 + 6
	if len(frame) < headerLen {
		return events.RBEvent{Status: events.RBStatusBroken}, codec.ErrStreamTooShort
	}
	off := 0
	if binary.LittleEndian.Uint16(frame[off:]) != codec.HeadMarker {
		return events.RBEvent{Status: events.RBStatusBroken}, codec.ErrHeadInvalid
	}
	off += 2
	statusByte := frame[off]
	off++
	length := binary.LittleEndian.Uint16(frame[off:])
	off += 2
	roi := binary.LittleEndian.Uint16(frame[off:])
	off += 2
	if roi != roiLen {
		return events.RBEvent{Status: events.RBStatusBroken}, fmt.Errorf("rbevent: unexpected ROI length %d", roi)
	}
	off += 8 // DNA, pass-through only
	firmwareHash := binary.LittleEndian.Uint32(frame[off:])
	off += 4
	boardID := frame[off]
	off++
	channelMask := binary.LittleEndian.Uint16(frame[off:])
	off += 2
	eventCounter := binary.LittleEndian.Uint32(frame[off:])
	off += 4
	off += 2 // two trigger-phase bytes, pass-through only

	hi := uint64(binary.LittleEndian.Uint32(frame[off:]))
	off += 4
	lo := uint64(binary.LittleEndian.Uint16(frame[off:]))
	off += 2
	timestamp48 := hi<<16 | lo

	e := events.RBEvent{
		BoardID:      boardID,
		ChannelMask:  channelMask,
		EventCounter: eventCounter,
		Timestamp48:  timestamp48,
		FirmwareHash: firmwareHash,
		Status:       events.RBStatusOK,
	}

	for ch := uint8(0); ch < events.MaxChannels; ch++ {
		if channelMask&(1<<ch) == 0 {
			continue
		}
		if off+channelBlockBytes > len(frame) {
			e.Status = events.RBStatusBroken
			return e, codec.ErrStreamTooShort
		}
		if binary.LittleEndian.Uint16(frame[off:]) != codec.HeadMarker {
			e.Status = events.RBStatusBroken
			return e, codec.ErrHeadInvalid
		}
		off += 2
		var w events.ChannelWaveform
		w.Channel = ch
		for i := 0; i < roiLen; i++ {
			w.ADC[i] = int16(binary.LittleEndian.Uint16(frame[off:]))
			off += 2
		}
		off += 4 // channel trailer, pass-through only
		e.Waveforms = append(e.Waveforms, w)
	}

	if off+2 > len(frame) {
		e.Status = events.RBStatusBroken
		return e, codec.ErrStreamTooShort
	}
	e.StopCell = binary.LittleEndian.Uint16(frame[off:])
	off += 2
	off += 4 // CRC32, pass-through only

	if off+2 > len(frame) {
		e.Status = events.RBStatusBroken
		return e, codec.ErrStreamTooShort
	}
	if binary.LittleEndian.Uint16(frame[off:]) != codec.TailMarker {
		e.Status = events.RBStatusTailInvalid
		return e, codec.ErrTailInvalid
	}
	if statusByte&statusBitDRSLost != 0 {
		e.Status = events.RBStatusDRSLost
	}
	_ = length
	return e, nil
}
