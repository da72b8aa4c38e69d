// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package codec

import (
	"encoding/binary"

	"github.com/x448/float16"
)

// HeadMarker brackets the start of every framed record.
const HeadMarker uint16 = 0xAAAA

// TailMarker brackets the end of every framed record.
const TailMarker uint16 = 0x5555

// legacyTailByte is the 0x05 byte some historical MTB records carry in
// place of the second 0x55 tail byte (tail 0x55 0x05 instead of 0x55 0x55).
// VerifyAt accepts both and its legacy result reports which one it matched.
const legacyTailByte = 0x05

// PutU16 writes v little-endian at data[off:off+2].
func PutU16(data []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(data[off:], v)
}

// GetU16 reads a little-endian uint16 from data[off:off+2].
func GetU16(data []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(data[off:])
}

// PutU32 writes v little-endian at data[off:off+4].
func PutU32(data []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(data[off:], v)
}

// GetU32 reads a little-endian uint32 from data[off:off+4].
func GetU32(data []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(data[off:])
}

// PutU64 writes v little-endian at data[off:off+8].
func PutU64(data []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(data[off:], v)
}

// GetU64 reads a little-endian uint64 from data[off:off+8].
func GetU64(data []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(data[off:])
}

// PutI16 writes a little-endian two's-complement int16.
func PutI16(data []byte, off int, v int16) {
	PutU16(data, off, uint16(v))
}

// GetI16 reads a little-endian two's-complement int16.
func GetI16(data []byte, off int) int16 {
	return int16(GetU16(data, off))
}

// PutF16 encodes v as an IEEE-754 binary16 (half precision), used for the
// compact hit fields in TofHit.
func PutF16(data []byte, off int, v float32) {
	PutU16(data, off, uint16(float16.Fromfloat32(v)))
}

// GetF16 decodes a binary16 half-precision float.
func GetF16(data []byte, off int) float32 {
	return float16.Frombits(GetU16(data, off)).Float32()
}

// PutString writes a u16-byte-length-prefixed string.
func PutString(data []byte, off int, s string) int {
	PutU16(data, off, uint16(len(s)))
	copy(data[off+2:], s)
	return off + 2 + len(s)
}

// GetString reads a u16-byte-length-prefixed string, returning the value and
// the offset just past it.
func GetString(data []byte, off int) (string, int, error) {
	if len(data) < off+2 {
		return "", off, ErrStreamTooShort
	}
	n := int(GetU16(data, off))
	if len(data) < off+2+n {
		return "", off, ErrStreamTooShort
	}
	return string(data[off+2 : off+2+n]), off + 2 + n, nil
}
