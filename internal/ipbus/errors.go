// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package ipbus implements the IPBus v2 UDP request/response client used to
// program, poll, and drain FIFOs on the master trigger board: bind, a
// read loop, and rebind on a prolonged timeout, speaking IPBus's
// big-endian register-access wire format against one fixed peer.
package ipbus

import "errors"

var (
	// ErrInvalidPacketID indicates the response packet ID did not match the
	// request; recoverable by realignment.
	ErrInvalidPacketID = errors.New("ipbus: response packet id mismatch")
	// ErrDecodingFailed indicates realignment was attempted and retries were
	// exhausted without a matching response.
	ErrDecodingFailed = errors.New("ipbus: decoding failed after retries exhausted")
	// ErrShortPacket indicates the response was too short to contain a header.
	ErrShortPacket = errors.New("ipbus: response shorter than packet header")
	// ErrUnexpectedWordCount indicates a read response carried an unexpected
	// number of payload words.
	ErrUnexpectedWordCount = errors.New("ipbus: unexpected word count in response")
)
