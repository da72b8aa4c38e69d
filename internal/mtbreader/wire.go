// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package mtbreader

import (
	"errors"

	"github.com/gaps-tof/liftof-cc/internal/events"
)

// errTailNotFound is returned when maxTailReads words were pulled off the
// FIFO without finding the terminating tail word.
var errTailNotFound = errors.New("mtbreader: tail word not found within read bound")

// daqTailWord closes a raw DAQ event, the 32-bit analogue of the byte-level
// codec.HeadMarker/TailMarker pair this core uses everywhere else.
const daqTailWord = 0x55555555

// fixedWordCount is the number of 32-bit words preceding the variable
// hit-mask tail:
//
//	0: event id
//	1: MTB timestamp
//	2: TIU timestamp
//	3: TIU GPS timestamp (32-bit half)
//	4: packed (TIU GPS 16-bit half << 16 | trigger source mask)
//	5: MTB link mask, high 32 bits
//	6: MTB link mask, low 32 bits
//	7: hit-mask word count
const fixedWordCount = 8

// tryDecodeWords attempts to decode a complete events.MTBEvent from the
// words accumulated so far. It reports ok=false (not an error) when more
// words are still needed.
func tryDecodeWords(words []uint32) (events.MTBEvent, bool) {
	if len(words) < fixedWordCount {
		return events.MTBEvent{}, false
	}
	n := int(words[7])
	hitWords := (n + 1) / 2
	total := fixedWordCount + hitWords + 1 // +1 for the tail word
	if len(words) < total {
		return events.MTBEvent{}, false
	}
	if words[total-1] != daqTailWord {
		// Enough words have arrived but framing didn't land on a tail;
		// the caller keeps reading up to maxTailReads before giving up.
		return events.MTBEvent{}, false
	}

	ev := events.MTBEvent{
		EventID:           words[0],
		TimestampMTB:      words[1],
		TimestampTIU:      words[2],
		TimestampTIUGPS32: words[3],
		TimestampTIUGPS16: uint16(words[4] >> 16),
		TriggerSourceMask: uint16(words[4]),
		MTBLinkMask:       uint64(words[5])<<32 | uint64(words[6]),
	}
	ev.LTBHitMasks = make([]uint16, n)
	base := fixedWordCount
	for i := 0; i < n; i++ {
		w := words[base+i/2]
		if i%2 == 0 {
			ev.LTBHitMasks[i] = uint16(w)
		} else {
			ev.LTBHitMasks[i] = uint16(w >> 16)
		}
	}
	return ev, true
}

// encodeWords is the reverse of tryDecodeWords, used only by tests to build
// a fake FIFO stream.
func encodeWords(ev events.MTBEvent) []uint32 {
	words := make([]uint32, fixedWordCount)
	words[0] = ev.EventID
	words[1] = ev.TimestampMTB
	words[2] = ev.TimestampTIU
	words[3] = ev.TimestampTIUGPS32
	words[4] = uint32(ev.TimestampTIUGPS16)<<16 | uint32(ev.TriggerSourceMask)
	words[5] = uint32(ev.MTBLinkMask >> 32)
	words[6] = uint32(ev.MTBLinkMask)
	words[7] = uint32(len(ev.LTBHitMasks))
	for i := 0; i < len(ev.LTBHitMasks); i += 2 {
		w := uint32(ev.LTBHitMasks[i])
		if i+1 < len(ev.LTBHitMasks) {
			w |= uint32(ev.LTBHitMasks[i+1]) << 16
		}
		words = append(words, w)
	}
	words = append(words, daqTailWord)
	return words
}
