// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

package config

import "time"

// Config is the single, immutable-after-load configuration object for the
// core. It is loaded once at process start by configulator (TOML + env
// overlay) and never mutated afterward; every component receives a pointer
// to the same value for the lifetime of the run.
type Config struct {
	LogLevel LogLevel `toml:"log_level" env:"LOG_LEVEL"`
	Debug    bool     `toml:"debug" env:"DEBUG"`

	// MappingDBPath is the sqlite file holding the DSI/J/channel -> RB,
	// paddle -> RB-endpoints, and MTB-link -> RB tables.
	MappingDBPath string `toml:"mapping_db_path" env:"MAPPING_DB_PATH"`
	// CalibrationDir holds one pre-parsed calibration file per RB; the text
	// format itself is parsed by an external collaborator.
	CalibrationDir string `toml:"calibration_dir" env:"CALIBRATION_DIR"`

	MTB MTBConfig `toml:"mtb"`
	RB  RBConfig  `toml:"rb"`

	Builder BuilderConfig `toml:"builder"`
	Sink    SinkConfig    `toml:"sink"`

	Redis    RedisConfig    `toml:"redis"`
	Metrics  MetricsConfig  `toml:"metrics"`
	PProf    PProfConfig    `toml:"pprof"`
	HTTP     HTTPConfig     `toml:"http"`
	Heartbeat HeartbeatConfig `toml:"heartbeat"`
}

// HTTPConfig configures the flight-packet websocket tap: a
// read-only relay of the same bytes the sink writes to disk, for a live
// downstream consumer such as a monitoring display.
type HTTPConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address" env:"HTTP_BIND_ADDRESS"`
	Port        int    `toml:"port" env:"HTTP_PORT"`
}

// MTBConfig describes how to reach the master trigger board over IPBus.
type MTBConfig struct {
	Address        string        `toml:"address" env:"MTB_ADDRESS"`
	ReadTimeout    time.Duration `toml:"read_timeout"`
	MoniPeriod     time.Duration `toml:"moni_period"`
	MaxTailReads   int           `toml:"max_tail_reads"`
	RetryLimit     int           `toml:"retry_limit"`
}

// RBConfig describes the set of readout boards and their per-board defaults.
type RBConfig struct {
	IgnoreList     []uint8          `toml:"ignore_list"`
	BufferStrategy BufferStrategy   `toml:"buffer_strategy"`
	NEvents        int              `toml:"n_events"`
	AdaptSeconds   time.Duration    `toml:"adapt_seconds"`
	ForcedTrigger  *ForcedTriggerConfig `toml:"forced_trigger"`

	// Boards lists the 1..50 RBs this process owns a DMA buffer pair and a
	// control-register connection for. Any ID
	// present here and absent from IgnoreList is acquired.
	Boards []RBBoardConfig `toml:"boards"`
	// UseMmap selects the /dev/mem-style mmap DMA backend over the
	// in-memory bench backend.
	UseMmap bool `toml:"use_mmap"`
	// DMACapacityBytes sizes each board's ping-pong buffer when not
	// overridden per-board.
	DMACapacityBytes uint64 `toml:"dma_capacity_bytes"`
}

// RBBoardConfig addresses one readout board: its control-register endpoint
// (reached over IPBus, the same wire protocol as the MTB) and, when
// RBConfig.UseMmap is set, the two DMA region paths backing its ping-pong
// buffer pair.
type RBBoardConfig struct {
	RBID          uint8  `toml:"rb_id"`
	Address       string `toml:"address"`
	DMAPathA      string `toml:"dma_path_a"`
	DMAPathB      string `toml:"dma_path_b"`
	CapacityBytes uint64 `toml:"capacity_bytes"`
}

// ForcedTriggerConfig enables software-paced triggering instead of waiting on
// the hardware event counter.
type ForcedTriggerConfig struct {
	RateHz float64 `toml:"rate_hz"`
}

// BuilderConfig configures the event-builder join strategy and timeout.
type BuilderConfig struct {
	Strategy     BuildStrategy `toml:"strategy"`
	WaitForN     int           `toml:"wait_for_n"`
	GreedyExtra  int           `toml:"greedy_extra"`
	TimeoutSec   float64       `toml:"timeout_sec"`
	MTBBatchSize int           `toml:"mtb_batch_size"`
	RBBatchSize  int           `toml:"rb_batch_size"`
}

// SinkConfig configures the packet sink: file rotation and/or a live
// telemetry publish mode.
type SinkConfig struct {
	OutputDir      string `toml:"output_dir"`
	RotateCount    int    `toml:"rotate_count"`
	FlightPacket   bool   `toml:"flight_packet"`
	PublishTopic   string `toml:"publish_topic"`
}

// HeartbeatConfig configures the heartbeat publisher cadence.
type HeartbeatConfig struct {
	Period time.Duration `toml:"period"`
}

// RedisConfig configures the optional Redis-backed pubsub/KV transport used
// for the control channel when running as more than one process.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled" env:"REDIS_ENABLED"`
	Host     string `toml:"host" env:"REDIS_HOST"`
	Password string `toml:"password" env:"REDIS_PASSWORD"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address" env:"METRICS_BIND_ADDRESS"`
	Port        int    `toml:"port" env:"METRICS_PORT"`
}

// PProfConfig configures the pprof debug HTTP endpoint.
type PProfConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address" env:"PPROF_BIND_ADDRESS"`
	Port        int    `toml:"port" env:"PPROF_PORT"`
}

// Default returns a Config populated with the defaults the core ships with
// when no TOML file is present.
func Default() *Config {
	return &Config{
		LogLevel:       LogLevelInfo,
		MappingDBPath:  "mapping.db",
		CalibrationDir: "calibrations",
		MTB: MTBConfig{
			Address:      "10.0.1.10:50001",
			ReadTimeout:  50 * time.Millisecond,
			MoniPeriod:   5 * time.Second,
			MaxTailReads: 16,
			RetryLimit:   4,
		},
		RB: RBConfig{
			BufferStrategy:   BufferStrategyAdaptive,
			AdaptSeconds:     5 * time.Second,
			DMACapacityBytes: 64 * 1024 * 1024,
		},
		Builder: BuilderConfig{
			Strategy:     BuildStrategyAdaptive,
			TimeoutSec:   2.0,
			MTBBatchSize: 1,
			RBBatchSize:  40,
		},
		Sink: SinkConfig{
			OutputDir:   ".",
			RotateCount: 10000,
		},
		Redis: RedisConfig{
			Host: "localhost:6379",
		},
		Metrics: MetricsConfig{
			BindAddress: "0.0.0.0",
			Port:        9100,
		},
		PProf: PProfConfig{
			BindAddress: "127.0.0.1",
			Port:        6060,
		},
		HTTP: HTTPConfig{
			BindAddress: "0.0.0.0",
			Port:        8080,
		},
		Heartbeat: HeartbeatConfig{
			Period: 1 * time.Second,
		},
	}
}
