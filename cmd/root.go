// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/control"
	"github.com/gaps-tof/liftof-cc/internal/eventbuilder"
	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/heartbeat"
	internalhttp "github.com/gaps-tof/liftof-cc/internal/http"
	"github.com/gaps-tof/liftof-cc/internal/ipbus"
	"github.com/gaps-tof/liftof-cc/internal/kv"
	"github.com/gaps-tof/liftof-cc/internal/mapping"
	"github.com/gaps-tof/liftof-cc/internal/metrics"
	"github.com/gaps-tof/liftof-cc/internal/mtbreader"
	"github.com/gaps-tof/liftof-cc/internal/pprof"
	"github.com/gaps-tof/liftof-cc/internal/pubsub"
	"github.com/gaps-tof/liftof-cc/internal/rbacquirer"
	"github.com/gaps-tof/liftof-cc/internal/rbevent"
	"github.com/gaps-tof/liftof-cc/internal/sink"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
	"github.com/USA-RedDragon/configulator"
	"github.com/glebarez/sqlite"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// NewCommand builds the root cobra command for the core binary.
func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "liftof-cc",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(newWatchBufferCommand())
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("liftof-cc - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tc := threadcontrol.New()

	tables, err := loadMappingTables(cfg)
	if err != nil {
		return fmt.Errorf("failed to load mapping tables: %w", err)
	}

	kvStore, err := kv.MakeKV(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to key-value store: %w", err)
	}

	bus, err := pubsub.MakePubSub(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to pubsub: %w", err)
	}

	rt, err := startRuntime(ctx, cfg, tables, kvStore, bus, tc, log)
	if err != nil {
		return fmt.Errorf("failed to start runtime: %w", err)
	}

	setupShutdownHandlers(ctx, tc, rt, log)
	return nil
}

// loadConfig loads the configuration from the cobra command's context,
// populated by configulator before RunE is invoked.
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}
	cfg, err := c.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupLogger configures the structured logger and installs it as the
// package-level default so components that call slog.Default() pick it up.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	var out *os.File
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		level, out = slog.LevelDebug, os.Stdout
	case config.LogLevelWarn:
		level, out = slog.LevelWarn, os.Stderr
	case config.LogLevelError:
		level, out = slog.LevelError, os.Stderr
	default:
		level, out = slog.LevelInfo, os.Stdout
	}
	logger := slog.New(tint.NewHandler(out, &tint.Options{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadMappingTables opens the read-only mapping database and loads its
// tables into memory once, before any worker thread starts.
func loadMappingTables(cfg *config.Config) (*mapping.Tables, error) {
	db, err := gorm.Open(sqlite.Open(cfg.MappingDBPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping database: %w", err)
	}
	return mapping.Load(db)
}

// runtime holds every long-lived worker and resource this process started,
// so setupShutdownHandlers has one place to ask everything to stop.
type runtime struct {
	cfg      *config.Config
	tc       *threadcontrol.ThreadControl
	bus      pubsub.PubSub
	kv       kv.KV
	registry *rbacquirer.Registry
	mtb      *ipbus.Client
	dispatch *control.Dispatcher
	heart    *heartbeat.Publisher

	dispatchCancel context.CancelFunc
}

const (
	mtbTick     = 10 * time.Millisecond
	rbTick      = 1 * time.Millisecond
	builderTick = 5 * time.Millisecond
)

// startRuntime wires and starts every long-lived worker: one MTB reader,
// one event builder, one packet sink, one per-RB acquirer+processor pair,
// one heartbeat publisher, one command listener.
func startRuntime(ctx context.Context, cfg *config.Config, tables *mapping.Tables, kvStore kv.KV, bus pubsub.PubSub, tc *threadcontrol.ThreadControl, log *slog.Logger) (*runtime, error) {
	m := metrics.NewMetrics()

	mteChan := make(chan events.MTBEvent, 256)
	moniChan := make(chan mtbreader.MtbMoniData, 16)
	rbArrivalChan := make(chan eventbuilder.RBArrival, 1024)
	compositeChan := make(chan events.CompositeEvent, 256)

	mtbClient, err := ipbus.Dial(cfg.MTB.Address, log)
	if err != nil {
		return nil, fmt.Errorf("failed to dial MTB: %w", err)
	}
	if cfg.MTB.ReadTimeout > 0 {
		mtbClient.SetReadTimeout(cfg.MTB.ReadTimeout)
	}
	mtbRd := mtbreader.New(mtbClient, mteChan, moniChan, tc, cfg.MTB.MaxTailReads, log)
	go mtbRd.Run(mtbTick)

	moniCtx, moniCancel := context.WithCancel(ctx)
	go mtbRd.StartMoni(moniCtx, cfg.MTB.MoniPeriod)
	go drainMoniCounters(moniCtx, moniChan)

	registry, err := startRBAcquirers(cfg, tc, rbArrivalChan, log)
	if err != nil {
		moniCancel()
		_ = mtbClient.Close()
		return nil, err
	}

	builder := eventbuilder.New(cfg.Builder, tables, mteChan, rbArrivalChan, compositeChan, tc, log)
	go builder.Run(builderTick)

	sk := sink.New(cfg.Sink, compositeChan, bus, tc, log)
	sinkCtx, sinkCancel := context.WithCancel(ctx)
	go func() {
		if err := sk.Run(sinkCtx); err != nil && err != context.Canceled {
			log.Warn("sink exited with error", "error", err)
		}
	}()

	metricsCtx, metricsCancel := context.WithCancel(ctx)
	go syncMetrics(metricsCtx, m, mtbRd, registry, builder, sk)

	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			log.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		if err := pprof.CreatePProfServer(cfg, tc, log); err != nil {
			log.Error("pprof server failed", "error", err)
		}
	}()
	go func() {
		if err := internalhttp.CreateServer(cfg, bus, log); err != nil {
			log.Error("flight-packet http server failed", "error", err)
		}
	}()

	heart, err := heartbeat.NewPublisher(bus, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create heartbeat publisher: %w", err)
	}
	registerHeartbeatSources(heart, tc, mtbRd, registry, builder, sk)
	heartCtx, heartCancel := context.WithCancel(ctx)
	if err := heart.Start(heartCtx, cfg.Heartbeat.Period); err != nil {
		heartCancel()
		return nil, fmt.Errorf("failed to start heartbeat publisher: %w", err)
	}

	dispatchCtx, dispatchCancel := context.WithCancel(ctx)
	dispatcher := control.NewDispatcher(bus, log)
	registerControlHandlers(dispatcher, registry, builder, log)
	go dispatcher.Run(dispatchCtx)

	log.Info("liftof-cc runtime started", "rb_count", len(registry.IDs()))

	return &runtime{
		cfg: cfg, tc: tc, bus: bus, kv: kvStore, registry: registry,
		mtb: mtbClient, dispatch: dispatcher, heart: heart,
		dispatchCancel: func() {
			dispatchCancel()
			moniCancel()
			sinkCancel()
			heartCancel()
			metricsCancel()
		},
	}, nil
}

// drainMoniCounters keeps the monitoring channel drained until ctx is
// cancelled. Samples are folded into Reader.RateStats by StartMoni itself;
// this loop only exists so a slow heartbeat tick never blocks the sampler.
func drainMoniCounters(ctx context.Context, moniChan <-chan mtbreader.MtbMoniData) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-moniChan:
		}
	}
}

// syncMetrics copies each worker's cumulative Counters into the Prometheus
// collectors once a second until ctx is cancelled. Prometheus counters only
// support Add, so this tracks the previous cumulative value per worker and
// adds the delta each tick rather than setting an absolute value.
func syncMetrics(ctx context.Context, m *metrics.Metrics, mtbRd *mtbreader.Reader, registry *rbacquirer.Registry, builder *eventbuilder.Builder, sk *sink.Sink) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var prevMTB mtbreader.Counters
	var prevBuilder eventbuilder.Counters
	var prevSink sink.Counters
	prevRB := make(map[uint8]rbacquirer.Counters)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := mtbRd.Counters
			m.MTBEventsRead.Add(float64(cur.EventsRead - prevMTB.EventsRead))
			m.MTBMissingEvents.Add(float64(cur.MissingEvents - prevMTB.MissingEvents))
			m.MTBZeroEvents.Add(float64(cur.ZeroEvents - prevMTB.ZeroEvents))
			m.MTBMagicEvents.Add(float64(cur.MagicEvents - prevMTB.MagicEvents))
			m.MTBCounterRewinds.Add(float64(cur.CounterRewinds - prevMTB.CounterRewinds))
			prevMTB = cur

			curB := builder.Counters
			m.BuilderReceivedMTB.Add(float64(curB.ReceivedMTB - prevBuilder.ReceivedMTB))
			m.BuilderReceivedRB.Add(float64(curB.ReceivedRB - prevBuilder.ReceivedRB))
			m.BuilderSent.Add(float64(curB.Sent - prevBuilder.Sent))
			m.BuilderTimedOut.Add(float64(curB.TimedOut - prevBuilder.TimedOut))
			m.BuilderDiscardedRB.Add(float64(curB.DiscardedRB - prevBuilder.DiscardedRB))
			m.BuilderMangled.Add(float64(curB.Mangled - prevBuilder.Mangled))
			m.BuilderGapCount.Add(float64(curB.GapCount - prevBuilder.GapCount))
			prevBuilder = curB

			curS := sk.Counters
			m.SinkWritten.Add(float64(curS.Written - prevSink.Written))
			m.SinkRotationCount.Add(float64(curS.RotationCount - prevSink.RotationCount))
			m.SinkPublishErrors.Add(float64(curS.PublishErrors - prevSink.PublishErrors))
			prevSink = curS

			for _, id := range registry.IDs() {
				a, ok := registry.Get(id)
				if !ok {
					continue
				}
				prev := prevRB[id]
				curA := a.Counters
				label := fmt.Sprintf("%d", id)
				m.RBEventsSeen.WithLabelValues(label).Add(float64(curA.EventsSeen - prev.EventsSeen))
				m.RBEventsSkipped.WithLabelValues(label).Add(float64(curA.EventsSkipped - prev.EventsSkipped))
				m.RBForcedFlips.WithLabelValues(label).Add(float64(curA.ForcedFlips - prev.ForcedFlips))
				prevRB[id] = curA
			}
		}
	}
}

// startRBAcquirers builds one Acquirer per configured board (skipping
// IgnoreList entries), registers it, and starts a goroutine that turns its
// raw buffer-flip blocks into typed eventbuilder.RBArrival values. Each
// board gets its own ThreadControl rather than sharing the process-wide
// one: Acquirer.Run exits on its ThreadControl's stop flag, and
// KindShutdownRB must be able to stop a single board without tearing down
// the MTB reader, builder, and every other acquirer alongside it.
func startRBAcquirers(cfg *config.Config, tc *threadcontrol.ThreadControl, rbOut chan<- eventbuilder.RBArrival, log *slog.Logger) (*rbacquirer.Registry, error) {
	registry := rbacquirer.NewRegistry(log)
	ignored := make(map[uint8]bool, len(cfg.RB.IgnoreList))
	for _, id := range cfg.RB.IgnoreList {
		ignored[id] = true
	}

	for _, board := range cfg.RB.Boards {
		if ignored[board.RBID] {
			continue
		}
		boardTC := threadcontrol.New()
		a, err := buildAcquirer(cfg, board, boardTC, rbOut, log)
		if err != nil {
			return nil, fmt.Errorf("rb %d: %w", board.RBID, err)
		}
		done := make(chan struct{})
		if err := registry.Register(a, rbTick, func() { boardTC.Stop() }, done); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func buildAcquirer(cfg *config.Config, board config.RBBoardConfig, tc *threadcontrol.ThreadControl, rbOut chan<- eventbuilder.RBArrival, log *slog.Logger) (*rbacquirer.Acquirer, error) {
	capacity := board.CapacityBytes
	if capacity == 0 {
		capacity = cfg.RB.DMACapacityBytes
	}

	var bufA, bufB rbacquirer.DMABuffer
	if cfg.RB.UseMmap {
		a, err := rbacquirer.OpenMmapDMABuffer(board.DMAPathA, capacity)
		if err != nil {
			return nil, err
		}
		b, err := rbacquirer.OpenMmapDMABuffer(board.DMAPathB, capacity)
		if err != nil {
			return nil, err
		}
		bufA, bufB = a, b
	} else {
		bufA = rbacquirer.NewMemDMABuffer(capacity)
		bufB = rbacquirer.NewMemDMABuffer(capacity)
	}

	var sizer rbacquirer.TripSizer
	switch cfg.RB.BufferStrategy {
	case config.BufferStrategyNEvents:
		n := cfg.RB.NEvents
		if n <= 0 {
			n = 1
		}
		sizer = rbacquirer.NEventsTrip{K: uint64(n)}
	default:
		seconds := cfg.RB.AdaptSeconds.Seconds()
		if seconds <= 0 {
			seconds = 1
		}
		sizer = rbacquirer.AdaptToRateTrip{Seconds: seconds}
	}

	client, err := ipbus.Dial(board.Address, log)
	if err != nil {
		return nil, err
	}
	regs := rbacquirer.NewRegisterClient(client)

	rawChan := make(chan []byte, 64)
	a := rbacquirer.NewAcquirer(board.RBID, bufA, bufB, sizer, regs, regs, rawChan, tc, log)
	if cfg.RB.ForcedTrigger != nil && cfg.RB.ForcedTrigger.RateHz > 0 {
		a.ForcedTriggerHz = cfg.RB.ForcedTrigger.RateHz
		a.SetForceWrite(regs.ForceTrigger)
	}

	go relayRBFrames(board.RBID, rawChan, rbOut, tc, log)
	return a, nil
}

// relayRBFrames carves each raw buffer-flip block into its constituent
// frames, parses them, and forwards the decoded events as RBArrival values
// for the event builder (bridging rbacquirer's raw-byte sink channel to
// eventbuilder's typed input).
func relayRBFrames(rbID uint8, rawChan <-chan []byte, out chan<- eventbuilder.RBArrival, tc *threadcontrol.ThreadControl, log *slog.Logger) {
	name := fmt.Sprintf("rbacquirer.relay.%d", rbID)
	for block := range rawChan {
		tc.Heartbeat(name)
		for _, frame := range rbacquirer.SplitFrames(block) {
			ev, err := rbevent.ParseFrame(frame)
			if err != nil {
				log.Warn("rb frame parse failed", "rb_id", rbID, "error", err)
			}
			select {
			case out <- eventbuilder.RBArrival{EventID: ev.EventCounter, Event: ev}:
			default:
				log.Warn("rb arrival channel full, dropping frame", "rb_id", rbID)
			}
		}
	}
}

// registerHeartbeatSources wires every worker's counters into the
// heartbeat publisher.
func registerHeartbeatSources(h *heartbeat.Publisher, tc *threadcontrol.ThreadControl, mtbRd *mtbreader.Reader, registry *rbacquirer.Registry, builder *eventbuilder.Builder, sk *sink.Sink) {
	h.Register("mtbreader", func() heartbeat.Record {
		return heartbeat.Record{
			Worker: "mtbreader", Timestamp: time.Now(), Alive: !tc.Hung("mtbreader", 10*time.Second),
			Counters: map[string]uint64{
				"events_read":     mtbRd.Counters.EventsRead,
				"missing_events":  mtbRd.Counters.MissingEvents,
				"zero_events":     mtbRd.Counters.ZeroEvents,
				"magic_events":    mtbRd.Counters.MagicEvents,
				"counter_rewinds": mtbRd.Counters.CounterRewinds,
				"rate_mean_mhz":   uint64(mtbRd.RateStats.Mean()),
			},
		}
	})
	h.Register("eventbuilder", func() heartbeat.Record {
		return heartbeat.Record{
			Worker: "eventbuilder", Timestamp: time.Now(), Alive: !tc.Hung("eventbuilder", 10*time.Second),
			Counters: map[string]uint64{
				"received_mtb": builder.Counters.ReceivedMTB,
				"received_rb":  builder.Counters.ReceivedRB,
				"sent":         builder.Counters.Sent,
				"timed_out":    builder.Counters.TimedOut,
				"discarded_rb": builder.Counters.DiscardedRB,
				"mangled":      builder.Counters.Mangled,
				"gap_count":    builder.Counters.GapCount,
			},
		}
	})
	h.Register("sink", func() heartbeat.Record {
		return heartbeat.Record{
			Worker: "sink", Timestamp: time.Now(), Alive: !tc.Hung("sink", 10*time.Second),
			Counters: map[string]uint64{
				"written":        sk.Counters.Written,
				"rotation_count": sk.Counters.RotationCount,
				"publish_errors": sk.Counters.PublishErrors,
			},
		}
	})
	for _, id := range registry.IDs() {
		id := id
		h.Register(fmt.Sprintf("rbacquirer.%d", id), func() heartbeat.Record {
			a, ok := registry.Get(id)
			if !ok {
				return heartbeat.Record{Worker: fmt.Sprintf("rbacquirer.%d", id)}
			}
			return heartbeat.Record{
				Worker: fmt.Sprintf("rbacquirer.%d", id), Timestamp: time.Now(),
				Counters: map[string]uint64{
					"events_seen":    a.Counters.EventsSeen,
					"events_skipped": a.Counters.EventsSkipped,
					"forced_flips":   a.Counters.ForcedFlips,
				},
			}
		})
	}
}

// registerControlHandlers wires each control.CommandKind to the runtime
// action it triggers.
func registerControlHandlers(d *control.Dispatcher, registry *rbacquirer.Registry, builder *eventbuilder.Builder, log *slog.Logger) {
	d.Handle(control.KindPing, func(_ context.Context, _ control.Command) (string, error) {
		return "pong", nil
	})
	d.Handle(control.KindDataRunStart, func(_ context.Context, cmd control.Command) (string, error) {
		var payload control.DataRunStart
		if err := cmd.DecodePayload(&payload); err != nil {
			return "", err
		}
		if err := registry.StartAll(); err != nil {
			return "", err
		}
		return fmt.Sprintf("run %d started", payload.RunID), nil
	})
	d.Handle(control.KindDataRunStop, func(_ context.Context, _ control.Command) (string, error) {
		return "run stop acknowledged", nil
	})
	d.Handle(control.KindRBCalibration, func(_ context.Context, cmd control.Command) (string, error) {
		var payload control.RBCalibration
		if err := cmd.DecodePayload(&payload); err != nil {
			return "", err
		}
		if _, ok := registry.Get(payload.RBID); !ok {
			return "", fmt.Errorf("rb %d not registered", payload.RBID)
		}
		return fmt.Sprintf("calibration accepted for rb %d", payload.RBID), nil
	})
	d.Handle(control.KindShutdownRB, func(_ context.Context, cmd control.Command) (string, error) {
		var payload control.ShutdownRB
		if err := cmd.DecodePayload(&payload); err != nil {
			return "", err
		}
		if err := registry.Deregister(payload.RBID); err != nil {
			return "", err
		}
		return fmt.Sprintf("rb %d shut down", payload.RBID), nil
	})
}

// setupShutdownHandlers blocks until a termination signal arrives, then
// stops every worker within a bounded timeout, logging (rather than
// blocking indefinitely on) any thread still running past it.
func setupShutdownHandlers(ctx context.Context, tc *threadcontrol.ThreadControl, rt *runtime, log *slog.Logger) {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()
	<-sigCtx.Done()
	log.Error("shutting down", "cause", context.Cause(sigCtx))

	tc.Stop()
	rt.dispatchCancel()

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.registry.DeregisterAll()
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rt.mtb.Close(); err != nil {
			log.Warn("failed to close MTB connection", "error", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rt.bus.Close(); err != nil {
			log.Warn("failed to close pubsub", "error", err)
		}
		if err := rt.kv.Close(); err != nil {
			log.Warn("failed to close kv store", "error", err)
		}
	}()

	const timeout = 10 * time.Second
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		log.Info("all workers stopped, shutting down gracefully")
		for _, name := range tc.Names() {
			if tc.Hung(name, 5*time.Second) {
				log.Warn("worker still running past shutdown bound", "worker", name)
			}
		}
		os.Exit(0)
	case <-time.After(timeout):
		log.Error("shutdown timed out, forcing exit")
		os.Exit(1)
	}
}
