// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package kv is a small key-value abstraction behind two backends: an
// in-memory map for single-binary runs and Redis for a multi-process
// deployment, selected by config.Redis.Enabled.
package kv

import (
	"context"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
)

// KV is a minimal key-value store with TTL and list operations, enough to
// back a run-metadata cache or a cross-process registry.
type KV interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	// RPush appends a value to a list stored under key. Returns the new length.
	RPush(ctx context.Context, key string, value []byte) (int64, error)
	// LDrain atomically returns all elements of the list and deletes the key.
	LDrain(ctx context.Context, key string) ([][]byte, error)
	Close() error
}

// MakeKV constructs the backend selected by cfg.Redis.Enabled.
func MakeKV(ctx context.Context, cfg *config.Config) (KV, error) {
	if cfg.Redis.Enabled {
		return makeRedisKV(ctx, cfg)
	}
	return makeInMemoryKV(), nil
}
