// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package codec implements byte-exact encode/decode of every framed record
// exchanged by the core: the sink-level envelope, and the
// fixed/variable-layout records nested inside it (MTB event, RB event, TOF
// hit). Encoding is little-endian throughout, using a manual offset-based
// parsing style rather than reflection or a generated schema.
package codec

import "errors"

// Errors returned by Decode/VerifyAt. All are non-fatal at this layer; the
// caller decides whether to discard, retry, or count.
var (
	// ErrHeadInvalid indicates no head marker was found at the cursor.
	ErrHeadInvalid = errors.New("codec: head marker not found")
	// ErrTailInvalid indicates the tail marker did not match at the expected offset.
	ErrTailInvalid = errors.New("codec: tail marker mismatch")
	// ErrStreamTooShort indicates fewer bytes remain than the record requires.
	ErrStreamTooShort = errors.New("codec: stream too short")
	// ErrWrongByteSize indicates a fixed-size record's advertised length didn't match.
	ErrWrongByteSize = errors.New("codec: wrong byte size for fixed record")
	// ErrIncorrectType indicates the type discriminator disagreed with the expected type.
	ErrIncorrectType = errors.New("codec: incorrect type discriminator")
)
