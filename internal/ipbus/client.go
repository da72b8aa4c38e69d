// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package ipbus

import (
	"log/slog"
	"net"
	"time"
)

// DefaultRetryLimit is the default bounded retry count for a request that
// times out before giving up and returning an error.
const DefaultRetryLimit = 4

// Client is a single-owner IPBus UDP client connected to one MTB address.
// It is not safe for concurrent use from multiple goroutines — the socket
// is exclusively owned by whichever thread dials it.
type Client struct {
	conn       *net.UDPConn
	raddr      *net.UDPAddr
	packetID   uint16
	retryLimit int
	readTimeout time.Duration
	log        *slog.Logger
}

// Dial binds an ephemeral local UDP port and connects it to addr.
func Dial(addr string, log *slog.Logger) (*Client, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		conn:        conn,
		raddr:       raddr,
		retryLimit:  DefaultRetryLimit,
		readTimeout: time.Second,
		log:         log,
	}, nil
}

// SetReadTimeout overrides the per-request receive timeout.
func (c *Client) SetReadTimeout(d time.Duration) { c.readTimeout = d }

// Close releases the underlying socket.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) nextPacketID() uint16 {
	id := c.packetID
	c.packetID++
	return id
}

// rebind closes and redials the socket after a prolonged read timeout.
func (c *Client) rebind() error {
	_ = c.conn.Close()
	conn, err := net.DialUDP("udp", nil, c.raddr)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *Client) roundTrip(req []byte, respBuf []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return 0, err
	}
	if _, err := c.conn.Write(req); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(respBuf)
	if err != nil {
		if rebindErr := c.rebind(); rebindErr != nil {
			return 0, rebindErr
		}
		return 0, err
	}
	return n, nil
}

// transact performs one request/response exchange, retrying with packet-ID
// realignment on mismatch up to c.retryLimit times.
func (c *Client) transact(txType TransactionType, addr uint32, nWords uint8, payload []uint32, expectWords int) ([]uint32, error) {
	buf := make([]byte, packetHeaderLen+transactionHeaderLen+4*max(expectWords, 1))
	for attempt := 0; attempt <= c.retryLimit; attempt++ {
		pid := c.nextPacketID()
		req := encodeRequest(pid, txType, addr, nWords, payload)
		n, err := c.roundTrip(req, buf)
		if err != nil {
			continue
		}
		hdr, err := decodePacketHeader(buf[:n])
		if err != nil {
			continue
		}
		if hdr.PacketID != pid {
			c.log.Warn("ipbus packet id mismatch, realigning", "want", pid, "got", hdr.PacketID, "attempt", attempt)
			if rerr := c.RealignPacketID(); rerr != nil {
				continue
			}
			continue
		}
		if txType == TransactionWrite || txType == TransactionWriteNonIncrement {
			return nil, nil
		}
		return decodeReadResponse(buf[:n], expectWords)
	}
	return nil, ErrDecodingFailed
}

// Read performs a single-word register read.
func (c *Client) Read(addr uint32) (uint32, error) {
	words, err := c.transact(TransactionRead, addr, 1, nil, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// ReadMulti reads n consecutive (or repeated, if !incrementAddr) words
// starting at addr.
func (c *Client) ReadMulti(addr uint32, n uint8, incrementAddr bool) ([]uint32, error) {
	txType := TransactionRead
	if !incrementAddr {
		txType = TransactionReadNonIncrement
	}
	return c.transact(txType, addr, n, nil, int(n))
}

// Write performs a single-word register write.
func (c *Client) Write(addr uint32, val uint32) error {
	_, err := c.transact(TransactionWrite, addr, 1, []uint32{val}, 0)
	return err
}

// Status issues a status-packet request and returns the target's reported
// buffer occupancy and next-expected packet ID.
func (c *Client) Status() (StatusWord, error) {
	buf := make([]byte, 64)
	n, err := c.roundTrip(encodeStatusRequest(), buf)
	if err != nil {
		return StatusWord{}, err
	}
	return decodeStatusResponse(buf[:n])
}

// RealignPacketID queries the target's next-expected packet ID via a
// status request and adopts it, recovering from an InvalidPacketID
// mismatch.
func (c *Client) RealignPacketID() error {
	status, err := c.Status()
	if err != nil {
		return err
	}
	c.packetID = status.NextExpectedID
	return nil
}
