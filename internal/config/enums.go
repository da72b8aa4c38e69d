// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package config

// LogLevel selects the slog level used by the core's structured logger.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// BufferStrategy selects how an RB acquirer sizes its DMA buffer trip
// point.
type BufferStrategy string

const (
	// BufferStrategyNEvents trips after a fixed number of events.
	BufferStrategyNEvents BufferStrategy = "n_events"
	// BufferStrategyAdaptive trips based on the measured trigger rate.
	BufferStrategyAdaptive BufferStrategy = "adapt_to_rate"
)

// BuildStrategy selects how the event builder decides an entry is
// complete.
type BuildStrategy string

const (
	BuildStrategyWaitForN         BuildStrategy = "wait_for_n_boards"
	BuildStrategyAdaptive         BuildStrategy = "adaptive"
	BuildStrategyAdaptiveThorough BuildStrategy = "adaptive_thorough"
	BuildStrategyAdaptiveGreedy   BuildStrategy = "adaptive_greedy"
)
