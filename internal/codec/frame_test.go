// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package codec_test

import (
	"testing"

	"github.com/gaps-tof/liftof-cc/internal/codec"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	e := codec.Envelope{Version: 1, Type: codec.KindMTBEvent, Body: []byte("hello world")}
	encoded := e.Encode()

	cursor := 0
	decoded, err := codec.DecodeEnvelope(encoded, &cursor)
	require.NoError(t, err)
	require.Equal(t, e.Version, decoded.Version)
	require.Equal(t, e.Type, decoded.Type)
	require.Equal(t, e.Body, decoded.Body)
	require.Equal(t, len(encoded), cursor)
}

func TestEnvelopeConsumesExactLength(t *testing.T) {
	e := codec.Envelope{Version: 1, Type: codec.KindRBEvent, Body: []byte{1, 2, 3, 4}}
	encoded := e.Encode()
	extra := append(append([]byte{}, encoded...), 0xDE, 0xAD, 0xBE, 0xEF)

	cursor := 0
	_, err := codec.DecodeEnvelope(extra, &cursor)
	require.NoError(t, err)
	require.Equal(t, len(encoded), cursor)
}

func TestEnvelopeHeadInvalid(t *testing.T) {
	data := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	cursor := 0
	_, err := codec.DecodeEnvelope(data, &cursor)
	require.ErrorIs(t, err, codec.ErrHeadInvalid)
	require.Equal(t, 0, cursor)
}

func TestEnvelopeStreamTooShort(t *testing.T) {
	data := []byte{0xAA, 0xAA, 1, byte(codec.KindMTBEvent)}
	cursor := 0
	_, err := codec.DecodeEnvelope(data, &cursor)
	require.ErrorIs(t, err, codec.ErrStreamTooShort)
}

func TestVerifyAtAcceptsLegacyTail(t *testing.T) {
	data := []byte{0xAA, 0xAA, 1, 2, 3, 4, 0x55, 0x05}
	cursor := 0
	legacy, err := codec.VerifyAt(data, &cursor, 6)
	require.NoError(t, err)
	require.True(t, legacy)
	require.Equal(t, 2, cursor)
}

func TestVerifyAtRejectsBadTail(t *testing.T) {
	data := []byte{0xAA, 0xAA, 1, 2, 3, 4, 0x00, 0x00}
	cursor := 0
	_, err := codec.VerifyAt(data, &cursor, 5)
	require.ErrorIs(t, err, codec.ErrTailInvalid)
}

func TestHalfPrecisionRoundTrip(t *testing.T) {
	buf := make([]byte, 2)
	codec.PutF16(buf, 0, 12.5)
	require.InDelta(t, 12.5, codec.GetF16(buf, 0), 0.01)
}

func TestStringRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	end := codec.PutString(buf, 0, "RB23")
	s, off, err := codec.GetString(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "RB23", s)
	require.Equal(t, end, off)
}
