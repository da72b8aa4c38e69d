// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package control implements the external command channel: a small, typed
// command taxonomy dispatched through the project's pubsub.PubSub
// abstraction, with one Ack published per request within a bounded
// timeout.
package control

import "encoding/json"

// CommandKind discriminates the command taxonomy.
type CommandKind string

const (
	KindDataRunStart  CommandKind = "data_run_start"
	KindDataRunStop   CommandKind = "data_run_stop"
	KindPing          CommandKind = "ping"
	KindRBCalibration CommandKind = "rb_calibration"
	KindShutdownRB    CommandKind = "shutdown_rb"
)

// Command is the envelope every control-channel message carries: a kind
// discriminator, a caller-assigned request ID for the matching Ack, and a
// kind-specific JSON payload.
type Command struct {
	Kind      CommandKind     `json:"kind"`
	RequestID string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DataRunStart is the payload of a KindDataRunStart command.
type DataRunStart struct {
	RunID         uint32  `json:"run_id"`
	NEvents       uint64  `json:"nevents"`
	NSeconds      uint64  `json:"nseconds"`
	OpMode        string  `json:"op_mode"`
	TriggerSource string  `json:"trigger_source"`
	RateHint      float64 `json:"rate_hint"`
}

// RBCalibration is the payload of a KindRBCalibration command.
type RBCalibration struct {
	RBID uint8 `json:"rb_id"`
}

// ShutdownRB is the payload of a KindShutdownRB command.
type ShutdownRB struct {
	RBID uint8 `json:"rb_id"`
}

// StatusCode reports the outcome of a dispatched command.
type StatusCode int

const (
	StatusOK StatusCode = iota
	StatusInvalidCommand
	StatusDenied
	StatusError
)

// Ack is published back on the reply topic for a command's RequestID.
type Ack struct {
	RequestID  string     `json:"request_id"`
	StatusCode StatusCode `json:"status_code"`
	Detail     string     `json:"detail,omitempty"`
}

// DecodePayload unmarshals a command's kind-specific payload into dst.
func (c Command) DecodePayload(dst any) error {
	return json.Unmarshal(c.Payload, dst)
}
