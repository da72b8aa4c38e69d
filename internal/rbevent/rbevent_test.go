// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbevent_test

import (
	"encoding/binary"
	"testing"

	"github.com/gaps-tof/liftof-cc/internal/codec"
	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/rbevent"
	"github.com/stretchr/testify/require"
)

func buildFrame(t *testing.T, boardID uint8, channelMask uint16, adc map[uint8][]int16, status uint8) []byte {
	t.Helper()
	const headerLen = 2 + 1 + 2 + 2 + 8 + 4 + 1 + 2 + 4 + 1 + 1 + 6
	nChannels := 0
	for ch := uint8(0); ch < events.MaxChannels; ch++ {
		if channelMask&(1<<ch) != 0 {
			nChannels++
		}
	}
	size := headerLen + nChannels*(2+2*events.SamplesPerChannel+4) + 2 + 4 + 2
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint16(buf[off:], codec.HeadMarker)
	off += 2
	buf[off] = status
	off++
	binary.LittleEndian.PutUint16(buf[off:], uint16(size))
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], events.SamplesPerChannel)
	off += 2
	off += 8 // DNA
	binary.LittleEndian.PutUint32(buf[off:], 0xCAFEBABE)
	off += 4
	buf[off] = boardID
	off++
	binary.LittleEndian.PutUint16(buf[off:], channelMask)
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], 7)
	off += 4
	off += 2 // trigger phases
	off += 4 // timestamp hi
	off += 2 // timestamp lo

	for ch := uint8(0); ch < events.MaxChannels; ch++ {
		if channelMask&(1<<ch) == 0 {
			continue
		}
		binary.LittleEndian.PutUint16(buf[off:], codec.HeadMarker)
		off += 2
		samples := adc[ch]
		for i := 0; i < events.SamplesPerChannel; i++ {
			var s int16
			if i < len(samples) {
				s = samples[i]
			}
			binary.LittleEndian.PutUint16(buf[off:], uint16(s))
			off += 2
		}
		off += 4 // channel trailer
	}
	binary.LittleEndian.PutUint16(buf[off:], 512) // stop cell
	off += 2
	off += 4 // crc32
	binary.LittleEndian.PutUint16(buf[off:], codec.TailMarker)
	off += 2
	return buf
}

func TestParseFrameOK(t *testing.T) {
	frame := buildFrame(t, 12, 0b1, map[uint8][]int16{0: {100, 200, 300}}, 0x00)
	e, err := rbevent.ParseFrame(frame)
	require.NoError(t, err)
	require.Equal(t, events.RBStatusOK, e.Status)
	require.Equal(t, uint8(12), e.BoardID)
	require.Equal(t, uint16(512), e.StopCell)
	require.Len(t, e.Waveforms, 1)
	require.Equal(t, int16(100), e.Waveforms[0].ADC[0])
}

func TestParseFrameBadTailMarksTailInvalid(t *testing.T) {
	frame := buildFrame(t, 12, 0b1, nil, 0x00)
	frame[len(frame)-1] = 0x00
	e, err := rbevent.ParseFrame(frame)
	require.Error(t, err)
	require.Equal(t, events.RBStatusTailInvalid, e.Status)
}

func TestParseFrameDRSLostFlagSetsStatus(t *testing.T) {
	frame := buildFrame(t, 12, 0b1, map[uint8][]int16{0: {100, 200, 300}}, 0x01)
	e, err := rbevent.ParseFrame(frame)
	require.NoError(t, err)
	require.Equal(t, events.RBStatusDRSLost, e.Status)
}

func TestCalibrateProducesVoltagesAndTimes(t *testing.T) {
	e := events.RBEvent{
		BoardID:  3,
		StopCell: 0,
		Waveforms: []events.ChannelWaveform{
			{Channel: 0, ADC: func() [events.SamplesPerChannel]int16 {
				var a [events.SamplesPerChannel]int16
				a[0], a[1] = 100, 110
				return a
			}()},
		},
	}
	var table rbevent.CalibrationTable
	table.RBID = 3
	for i := range table.TBinWidths[0] {
		table.TBinWidths[0][i] = 0.3
		table.VIncrements[0][i] = 1.0
	}
	require.NoError(t, table.Calibrate(&e))
	require.InDelta(t, 100.0, e.Waveforms[0].Voltages[0], 0.01)
	require.InDelta(t, 0.0, e.Waveforms[0].Nanoseconds[0], 0.01)
	require.InDelta(t, 0.3, e.Waveforms[0].Nanoseconds[1], 0.01)
}

func TestCombineEndsReconstructsPositionAndTime(t *testing.T) {
	g := rbevent.PaddleGeometry{PaddleID: 5, LengthMM: 1800, LightSpeed: 15, CableLenMM: 2000, CableSpeed: 20}
	a := rbevent.ChannelHit{Time: 10, Peak: 50, Charge: 3}
	b := rbevent.ChannelHit{Time: 10, Peak: 48, Charge: 2.9}
	hit := rbevent.CombineEnds(g, a, b)
	require.Equal(t, uint16(5), hit.PaddleID)
	require.InDelta(t, 900, hit.PosAcross, 0.01) // t_a == t_b -> center of paddle
}

func TestCombineEndsClampsPosition(t *testing.T) {
	g := rbevent.PaddleGeometry{PaddleID: 5, LengthMM: 1000, LightSpeed: 15, CableLenMM: 2000, CableSpeed: 20}
	a := rbevent.ChannelHit{Time: 1000}
	b := rbevent.ChannelHit{Time: 0}
	hit := rbevent.CombineEnds(g, a, b)
	require.Equal(t, float32(1000), hit.PosAcross)
}

func TestExtractHitsFindsSinglePeak(t *testing.T) {
	var adc [events.SamplesPerChannel]int16
	for i := 60; i < 70; i++ {
		adc[i] = 500
	}
	voltages := make([]float32, events.SamplesPerChannel)
	nanoseconds := make([]float32, events.SamplesPerChannel)
	for i := range voltages {
		voltages[i] = float32(adc[i])
		nanoseconds[i] = float32(i) * 0.3
	}
	e := events.RBEvent{Waveforms: []events.ChannelWaveform{
		{Channel: 2, ADC: adc, Voltages: voltages, Nanoseconds: nanoseconds},
	}}
	hits := rbevent.ExtractHits(e, rbevent.DefaultExtractionParams)
	require.Len(t, hits, 1)
	require.Equal(t, uint8(2), hits[0].Channel)
	require.Greater(t, hits[0].Charge, float32(0))
}
