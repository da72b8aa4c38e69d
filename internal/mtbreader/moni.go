// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package mtbreader

import (
	"math"

	"github.com/gaps-tof/liftof-cc/internal/codec"
)

func floatBits(v float32) uint32 { return math.Float32bits(v) }

// MTB register addresses, grounded on the original master trigger driver's
// register map (master_trigger.rs: "0x13 is MT.EVENT_QUEUE>SIZE", "0x11" the
// DAQ FIFO data register). The ADC monitoring registers below follow the
// same driver's adc_temp/vccint and adc_vccaux/vccbram register pair.
const (
	regEventQueueSize = 0x13
	regDAQFIFOData    = 0x11
	regTriggerRate    = 0x20
	regFPGATempVccint = 0x30
	regVccauxVccbram  = 0x31
)

// MtbMoniData is the MTB's periodic monitoring snapshot:
// measured trigger rate and onboard FPGA environmental/power telemetry.
type MtbMoniData struct {
	Rate        uint16
	FPGATemp    float32
	FPGAVccInt  float32
	FPGAVccAux  float32
	FPGAVccBRAM float32
}

// Encode serializes the snapshot as an Envelope body.
func (m MtbMoniData) Encode() []byte {
	body := make([]byte, 2+4*4)
	off := 0
	codec.PutU16(body, off, m.Rate)
	off += 2
	codec.PutU32(body, off, floatBits(m.FPGATemp))
	off += 4
	codec.PutU32(body, off, floatBits(m.FPGAVccInt))
	off += 4
	codec.PutU32(body, off, floatBits(m.FPGAVccAux))
	off += 4
	codec.PutU32(body, off, floatBits(m.FPGAVccBRAM))
	return body
}

// EncodeEnvelope wraps the snapshot in a framed Envelope.
func (m MtbMoniData) EncodeEnvelope() []byte {
	return codec.Envelope{Version: 1, Type: codec.KindMtbMoni, Body: m.Encode()}.Encode()
}

// sampleMoni reads one monitoring snapshot over the IPBus client.
func (r *Reader) sampleMoni() (MtbMoniData, error) {
	rate, err := r.client.Read(regTriggerRate)
	if err != nil {
		return MtbMoniData{}, err
	}
	tempVccint, err := r.client.Read(regFPGATempVccint)
	if err != nil {
		return MtbMoniData{}, err
	}
	vccauxVccbram, err := r.client.Read(regVccauxVccbram)
	if err != nil {
		return MtbMoniData{}, err
	}
	return MtbMoniData{
		Rate:        uint16(rate),
		FPGATemp:    adcCounts(tempVccint >> 16),
		FPGAVccInt:  adcCounts(tempVccint & 0xFFFF),
		FPGAVccAux:  adcCounts(vccauxVccbram >> 16),
		FPGAVccBRAM: adcCounts(vccauxVccbram & 0xFFFF),
	}, nil
}

// adcCounts converts a raw 16-bit Xilinx system-monitor ADC code to a
// physical unit using the same linear scale for every monitored quantity;
// the MTB's calibration collaborator refines units downstream, this reader
// only needs a stable numeric value to publish.
func adcCounts(raw uint32) float32 {
	return float32(raw) / 65536.0 * 503.975
}
