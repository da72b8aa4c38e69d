// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbacquirer

// Register addresses on a board's IPBus-addressable control/status block,
// distinct from the MTB's own register map (internal/mtbreader) but reached
// over the same IPBus wire protocol (internal/ipbus) — readout boards and
// the master trigger board share one control-network convention.
const (
	regEventCounter = 0x10
	regTriggerRate  = 0x20
	regForceTrigger = 0x30
)

// ipbusClient is the narrow surface RegisterClient needs from ipbus.Client.
type ipbusClient interface {
	Read(addr uint32) (uint32, error)
	Write(addr uint32, val uint32) error
}

// RegisterClient adapts an IPBus connection to one board into the
// EventCounterReader and RateReader interfaces Acquirer polls, and supplies
// the force-trigger write used in forced-trigger mode.
type RegisterClient struct {
	client ipbusClient
}

// NewRegisterClient wraps an already-dialed IPBus client for one board.
func NewRegisterClient(client ipbusClient) *RegisterClient {
	return &RegisterClient{client: client}
}

// EventCounter reads the board's hardware trigger/event counter register.
func (r *RegisterClient) EventCounter() (uint32, error) {
	return r.client.Read(regEventCounter)
}

// TriggerRateHz reads the board's measured trigger rate register. The
// register reports rate in milli-hertz to fit an integer register width;
// convert back to hertz here so callers never see the scaling factor.
func (r *RegisterClient) TriggerRateHz() (float64, error) {
	raw, err := r.client.Read(regTriggerRate)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 1000.0, nil
}

// ForceTrigger issues an explicit software trigger write, used by
// Acquirer.SetForceWrite in forced-trigger mode.
func (r *RegisterClient) ForceTrigger() error {
	return r.client.Write(regForceTrigger, 1)
}
