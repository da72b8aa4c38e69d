// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/pubsub"
	"github.com/go-co-op/gocron/v2"
)

// Record is one worker's periodic status snapshot.
type Record struct {
	Worker          string            `json:"worker"`
	Timestamp       time.Time         `json:"timestamp"`
	Alive           bool              `json:"alive"`
	ChannelDepth    int               `json:"channel_depth"`
	Counters        map[string]uint64 `json:"counters"`
	ManifestRevision string           `json:"manifest_revision,omitempty"`
}

// Topic is the pubsub topic heartbeat records are published under.
const Topic = "heartbeat"

// Publisher samples a set of named counter sources on a fixed period and
// publishes one Record per worker through the same pubsub.PubSub interface
// used for the control channel.
type Publisher struct {
	bus      pubsub.PubSub
	log      *slog.Logger
	sources  map[string]func() Record
	sched    gocron.Scheduler
}

// NewPublisher constructs a Publisher over the given pubsub backend.
func NewPublisher(bus pubsub.PubSub, log *slog.Logger) (*Publisher, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{bus: bus, log: log, sources: make(map[string]func() Record), sched: sched}, nil
}

// Register adds a worker's sampling function; it is invoked once per tick.
func (p *Publisher) Register(worker string, sample func() Record) {
	p.sources[worker] = sample
}

// Start schedules the sampling tick at the given period and begins
// publishing.
func (p *Publisher) Start(ctx context.Context, period time.Duration) error {
	_, err := p.sched.NewJob(
		gocron.DurationJob(period),
		gocron.NewTask(func() { p.tick(ctx) }),
	)
	if err != nil {
		return err
	}
	p.sched.Start()
	return nil
}

func (p *Publisher) tick(ctx context.Context) {
	for worker, sample := range p.sources {
		rec := sample()
		data, err := encodeRecord(rec)
		if err != nil {
			p.log.Error("heartbeat encode failed", "worker", worker, "error", err)
			continue
		}
		if err := p.bus.Publish(ctx, Topic, data); err != nil {
			p.log.Warn("heartbeat publish failed", "worker", worker, "error", err)
		}
	}
}

// Stop shuts the scheduler down within its own bounded timeout.
func (p *Publisher) Stop() error {
	return p.sched.Shutdown()
}
