// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package heartbeat

import (
	"encoding/json"

	"github.com/gaps-tof/liftof-cc/internal/codec"
)

// Encode wraps a JSON-encoded Record body in a framed Envelope. Heartbeat/moni records are diagnostic telemetry rather than the
// high-rate event stream, so JSON is used for the body instead of a
// hand-rolled binary layout — the envelope framing and type
// discriminator are still shared with every other on-wire record.
func (r Record) Encode() ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return codec.Envelope{Version: 1, Type: codec.KindHeartbeat, Body: body}.Encode(), nil
}

func encodeRecord(r Record) ([]byte, error) { return r.Encode() }

// DecodeRecord reads one framed heartbeat Record starting at *cursor.
func DecodeRecord(data []byte, cursor *int) (Record, error) {
	env, err := codec.DecodeEnvelope(data, cursor)
	if err != nil {
		return Record{}, err
	}
	if env.Type != codec.KindHeartbeat {
		return Record{}, codec.ErrIncorrectType
	}
	var r Record
	if err := json.Unmarshal(env.Body, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}
