// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/rbacquirer"
	"github.com/spf13/cobra"
)

// newWatchBufferCommand builds the watch-buffer diagnostic subcommand: it
// samples one board's two DMA buffers' fill level on a fixed period and
// prints them, without draining or resetting either buffer, so it can run
// alongside a live acquirer without disturbing its occupancy bookkeeping
// (grounded on liftof-rb's watch_buffer_fill.rs diagnostic binary).
func newWatchBufferCommand() *cobra.Command {
	var (
		rbID     uint8
		pathA    string
		pathB    string
		capacity uint64
		period   time.Duration
		useMmap  bool
	)

	cmd := &cobra.Command{
		Use:   "watch-buffer",
		Short: "Sample a readout board's DMA buffer fill level without draining it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatchBuffer(cmd.Context(), rbID, pathA, pathB, capacity, period, useMmap)
		},
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	cmd.Flags().Uint8Var(&rbID, "rb-id", 1, "readout board ID to watch")
	cmd.Flags().StringVar(&pathA, "dma-path-a", "", "path to buffer A's DMA region (mmap mode only)")
	cmd.Flags().StringVar(&pathB, "dma-path-b", "", "path to buffer B's DMA region (mmap mode only)")
	cmd.Flags().Uint64Var(&capacity, "capacity-bytes", 64*1024*1024, "buffer capacity in bytes")
	cmd.Flags().DurationVar(&period, "period", time.Second, "sampling period")
	cmd.Flags().BoolVar(&useMmap, "mmap", false, "mmap the DMA regions instead of using an in-memory stand-in")

	return cmd
}

func runWatchBuffer(ctx context.Context, rbID uint8, pathA, pathB string, capacity uint64, period time.Duration, useMmap bool) error {
	log := slog.Default()

	var bufA, bufB rbacquirer.DMABuffer
	if useMmap {
		a, err := rbacquirer.OpenMmapDMABuffer(pathA, capacity)
		if err != nil {
			return fmt.Errorf("failed to mmap buffer A: %w", err)
		}
		b, err := rbacquirer.OpenMmapDMABuffer(pathB, capacity)
		if err != nil {
			return fmt.Errorf("failed to mmap buffer B: %w", err)
		}
		bufA, bufB = a, b
	} else {
		bufA = rbacquirer.NewMemDMABuffer(capacity)
		bufB = rbacquirer.NewMemDMABuffer(capacity)
	}

	w := rbacquirer.NewWatcher(rbID, bufA, bufB, log)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w.Run(sigCtx, period, func(s rbacquirer.Sample) {
		fmt.Printf("rb %d  %s  A: %d/%d (%.1f%%)  B: %d/%d (%.1f%%)\n",
			s.RBID, s.Timestamp.Format(time.RFC3339),
			s.OccupancyA, s.CapacityA, s.FractionA()*100,
			s.OccupancyB, s.CapacityB, s.FractionB()*100,
		)
	})
	return nil
}
