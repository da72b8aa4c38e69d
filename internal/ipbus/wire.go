// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package ipbus

import "encoding/binary"

// ProtocolVersion is the IPBus wire protocol version this client speaks.
const ProtocolVersion = 2

// PacketType identifies a control packet's role on the wire.
type PacketType uint8

const (
	PacketTypeControl PacketType = 0x0
	PacketTypeStatus  PacketType = 0x1
	PacketTypeResend  PacketType = 0x2
)

// TransactionType is the IPBus sub-type of one transaction within a
// packet.
type TransactionType uint8

const (
	TransactionRead              TransactionType = 0x0
	TransactionWrite             TransactionType = 0x1
	TransactionReadNonIncrement  TransactionType = 0x2
	TransactionWriteNonIncrement TransactionType = 0x3
	TransactionRMWBits           TransactionType = 0x4
)

// InfoCode is the outbound/inbound status nibble of a transaction header.
type InfoCode uint8

const (
	InfoCodeRequestOutbound InfoCode = 0xF
	InfoCodeSuccess         InfoCode = 0x0
	InfoCodeBadHeader       InfoCode = 0x1
	InfoCodeReadError       InfoCode = 0x4
	InfoCodeWriteError      InfoCode = 0x5
)

const (
	packetHeaderLen     = 4
	transactionHeaderLen = 4
)

// packetHeader is IPBus's fixed 4-byte control-packet header: version in
// the high nibble, packet type in the low nibble, a 16-bit packet ID, and a
// fixed byte-order marker.
type packetHeader struct {
	Version    uint8
	Type       PacketType
	PacketID   uint16
}

func (h packetHeader) encode() [packetHeaderLen]byte {
	var b [packetHeaderLen]byte
	b[0] = h.Version<<4 | uint8(h.Type)
	binary.BigEndian.PutUint16(b[1:3], h.PacketID)
	b[3] = 0xF0
	return b
}

func decodePacketHeader(b []byte) (packetHeader, error) {
	if len(b) < packetHeaderLen {
		return packetHeader{}, ErrShortPacket
	}
	return packetHeader{
		Version:  b[0] >> 4,
		Type:     PacketType(b[0] & 0x0F),
		PacketID: binary.BigEndian.Uint16(b[1:3]),
	}, nil
}

// transactionHeader is IPBus's 4-byte per-transaction header.
type transactionHeader struct {
	Words    uint8
	Type     TransactionType
	InfoCode InfoCode
}

func (h transactionHeader) encode() [transactionHeaderLen]byte {
	var b [transactionHeaderLen]byte
	b[0] = h.Words
	b[1] = uint8(h.Type)<<4 | uint8(h.InfoCode)
	return b
}

func decodeTransactionHeader(b []byte) (transactionHeader, error) {
	if len(b) < transactionHeaderLen {
		return transactionHeader{}, ErrShortPacket
	}
	return transactionHeader{
		Words:    b[0],
		Type:     TransactionType(b[1] >> 4),
		InfoCode: InfoCode(b[1] & 0x0F),
	}, nil
}

// encodeRequest builds one complete IPBus request packet: a packet header,
// a transaction header, the target address, and (for writes) the payload
// words. All multi-byte fields are big-endian.
func encodeRequest(packetID uint16, txType TransactionType, addr uint32, nWords uint8, payload []uint32) []byte {
	out := make([]byte, packetHeaderLen+transactionHeaderLen+4+4*len(payload))
	ph := packetHeader{Version: ProtocolVersion, Type: PacketTypeControl, PacketID: packetID}.encode()
	copy(out[0:], ph[:])
	th := transactionHeader{Words: nWords, Type: txType, InfoCode: InfoCodeRequestOutbound}.encode()
	copy(out[packetHeaderLen:], th[:])
	binary.BigEndian.PutUint32(out[packetHeaderLen+transactionHeaderLen:], addr)
	off := packetHeaderLen + transactionHeaderLen + 4
	for _, w := range payload {
		binary.BigEndian.PutUint32(out[off:], w)
		off += 4
	}
	return out
}

// encodeStatusRequest builds the status-packet request used to realign
// packet IDs.
func encodeStatusRequest() []byte {
	ph := packetHeader{Version: ProtocolVersion, Type: PacketTypeStatus, PacketID: 0}.encode()
	return ph[:]
}

// StatusWord is the decoded response to a status request: the target's
// buffer sizes and its next-expected packet ID.
type StatusWord struct {
	MTU             uint32
	NBuffers        uint32
	NextExpectedID  uint16
	MostRecentID    uint16
}

func decodeStatusResponse(data []byte) (StatusWord, error) {
	if len(data) < packetHeaderLen+16 {
		return StatusWord{}, ErrShortPacket
	}
	body := data[packetHeaderLen:]
	return StatusWord{
		MTU:            binary.BigEndian.Uint32(body[0:4]),
		NBuffers:       binary.BigEndian.Uint32(body[4:8]),
		NextExpectedID: binary.BigEndian.Uint16(body[8:10]),
		MostRecentID:   binary.BigEndian.Uint16(body[12:14]),
	}, nil
}

func decodeReadResponse(data []byte, expectedWords int) ([]uint32, error) {
	if len(data) < packetHeaderLen+transactionHeaderLen {
		return nil, ErrShortPacket
	}
	body := data[packetHeaderLen+transactionHeaderLen:]
	if len(body) < 4*expectedWords {
		return nil, ErrUnexpectedWordCount
	}
	out := make([]uint32, expectedWords)
	for i := 0; i < expectedWords; i++ {
		out[i] = binary.BigEndian.Uint32(body[4*i:])
	}
	return out, nil
}
