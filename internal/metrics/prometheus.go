// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package metrics exposes the core's counters as Prometheus metrics: a
// single Metrics struct holding pre-registered collectors, exposed as
// exported fields.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the core registers. The workers never touch
// it: cmd's syncMetrics loop copies their Counters into these fields. There
// is no shared lock because prometheus collectors are already safe for
// concurrent use.
type Metrics struct {
	MTBEventsRead      prometheus.Counter
	MTBMissingEvents   prometheus.Counter
	MTBZeroEvents      prometheus.Counter
	MTBMagicEvents     prometheus.Counter
	MTBCounterRewinds  prometheus.Counter

	RBEventsSeen    *prometheus.CounterVec
	RBEventsSkipped *prometheus.CounterVec
	RBForcedFlips   *prometheus.CounterVec
	RBTripSize      *prometheus.GaugeVec

	BuilderReceivedMTB  prometheus.Counter
	BuilderReceivedRB   prometheus.Counter
	BuilderSent         prometheus.Counter
	BuilderTimedOut     prometheus.Counter
	BuilderDiscardedRB  prometheus.Counter
	BuilderMangled      prometheus.Counter
	BuilderGapCount     prometheus.Counter
	BuilderCacheDepth   prometheus.Gauge

	SinkWritten       prometheus.Counter
	SinkRotationCount prometheus.Counter
	SinkPublishErrors prometheus.Counter
}

// NewMetrics constructs and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		MTBEventsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_mtb_events_read_total",
			Help: "Events drained from the MTB DAQ FIFO.",
		}),
		MTBMissingEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_mtb_missing_events_total",
			Help: "Gaps detected in the MTB event ID sequence.",
		}),
		MTBZeroEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_mtb_zero_events_total",
			Help: "MTB events observed with event ID zero.",
		}),
		MTBMagicEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_mtb_magic_events_total",
			Help: "MTB events observed carrying the DAQ filler/magic word as their event ID.",
		}),
		MTBCounterRewinds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_mtb_counter_rewinds_total",
			Help: "Times the MTB event ID counter was observed to rewind.",
		}),
		RBEventsSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liftof_cc_rb_events_seen_total",
			Help: "Trigger events observed per readout board acquirer.",
		}, []string{"rb_id"}),
		RBEventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liftof_cc_rb_events_skipped_total",
			Help: "Hardware event-counter gaps observed per readout board acquirer.",
		}, []string{"rb_id"}),
		RBForcedFlips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liftof_cc_rb_forced_flips_total",
			Help: "Buffer flips forced by an occupancy regression per readout board acquirer.",
		}, []string{"rb_id"}),
		RBTripSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "liftof_cc_rb_trip_size_events",
			Help: "Current trip size in events per readout board acquirer.",
		}, []string{"rb_id"}),
		BuilderReceivedMTB: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_builder_received_mtb_total",
			Help: "MTB events received by the event builder.",
		}),
		BuilderReceivedRB: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_builder_received_rb_total",
			Help: "RB events received by the event builder.",
		}),
		BuilderSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_builder_sent_total",
			Help: "Composite events emitted complete.",
		}),
		BuilderTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_builder_timed_out_total",
			Help: "Composite events emitted after timing out with missing boards.",
		}),
		BuilderDiscardedRB: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_builder_discarded_rb_total",
			Help: "RB events discarded as older than the oldest cached event ID.",
		}),
		BuilderMangled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_builder_mangled_total",
			Help: "Duplicate board joins observed for a single cached event.",
		}),
		BuilderGapCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_builder_gap_count_total",
			Help: "Gaps observed in the MTB event ID sequence as seen by the builder.",
		}),
		BuilderCacheDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "liftof_cc_builder_cache_depth",
			Help: "Number of event IDs currently held in the builder cache.",
		}),
		SinkWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_sink_written_total",
			Help: "Composite events written to the packet sink.",
		}),
		SinkRotationCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_sink_rotation_total",
			Help: "Packet sink output file rotations.",
		}),
		SinkPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liftof_cc_sink_publish_errors_total",
			Help: "Flight-packet publish failures.",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(
		m.MTBEventsRead, m.MTBMissingEvents, m.MTBZeroEvents, m.MTBMagicEvents, m.MTBCounterRewinds,
		m.RBEventsSeen, m.RBEventsSkipped, m.RBForcedFlips, m.RBTripSize,
		m.BuilderReceivedMTB, m.BuilderReceivedRB, m.BuilderSent, m.BuilderTimedOut,
		m.BuilderDiscardedRB, m.BuilderMangled, m.BuilderGapCount, m.BuilderCacheDepth,
		m.SinkWritten, m.SinkRotationCount, m.SinkPublishErrors,
	)
}
