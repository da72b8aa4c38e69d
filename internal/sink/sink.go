// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package sink owns the packet sink worker: it receives
// composite events from internal/eventbuilder, writes them as a sequence of
// framed envelope packets to rotating files, and optionally republishes the
// same bytes on the control-channel pubsub bus as a live telemetry tap
// ("flight-packet" mode).
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/pubsub"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
)

// Counters tracks the sink's write/publish activity.
type Counters struct {
	Written       uint64
	RotationCount uint64
	PublishErrors uint64
}

// Sink is the single-consumer packet-sink worker.
type Sink struct {
	in  <-chan events.CompositeEvent
	bus pubsub.PubSub
	tc  *threadcontrol.ThreadControl
	log *slog.Logger

	cfg config.SinkConfig

	file          *os.File
	recordsInFile int
	fileIndex     int

	Counters Counters
}

// New constructs a Sink. bus may be nil when flight-packet publication is
// disabled.
func New(cfg config.SinkConfig, in <-chan events.CompositeEvent, bus pubsub.PubSub, tc *threadcontrol.ThreadControl, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	if cfg.RotateCount <= 0 {
		cfg.RotateCount = 10000
	}
	return &Sink{in: in, bus: bus, tc: tc, log: log, cfg: cfg}
}

// Run consumes composite events until the ThreadControl stop flag fires,
// then closes the current output file.
func (s *Sink) Run(ctx context.Context) error {
	defer s.closeCurrentFile()
	for !s.tc.Stopped() {
		select {
		case c := <-s.in:
			s.tc.Heartbeat("sink")
			if err := s.handle(ctx, c); err != nil {
				s.log.Warn("sink failed to handle composite event", "event_id", c.EventID, "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Sink) handle(ctx context.Context, c events.CompositeEvent) error {
	data := c.EncodeEnvelope()
	if err := s.writeRecord(data); err != nil {
		return err
	}
	s.Counters.Written++

	if s.cfg.FlightPacket && s.bus != nil {
		topic := s.cfg.PublishTopic
		if topic == "" {
			topic = "sink.flight_packet"
		}
		if err := s.bus.Publish(ctx, topic, data); err != nil {
			s.Counters.PublishErrors++
			s.log.Warn("sink flight-packet publish failed", "event_id", c.EventID, "error", err)
		}
	}
	return nil
}

// writeRecord appends one framed record to the current output file,
// rotating to a new file once cfg.RotateCount records have been written.
func (s *Sink) writeRecord(data []byte) error {
	if s.file == nil || s.recordsInFile >= s.cfg.RotateCount {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	if _, err := s.file.Write(data); err != nil {
		return err
	}
	s.recordsInFile++
	return nil
}

func (s *Sink) rotate() error {
	s.closeCurrentFile()
	name := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("liftof-cc-%06d.dat", s.fileIndex))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	s.recordsInFile = 0
	s.fileIndex++
	s.Counters.RotationCount++
	return nil
}

func (s *Sink) closeCurrentFile() {
	if s.file == nil {
		return
	}
	if err := s.file.Close(); err != nil {
		s.log.Warn("sink failed to close output file", "error", err)
	}
	s.file = nil
}
