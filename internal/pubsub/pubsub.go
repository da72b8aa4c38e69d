// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package pubsub abstracts the control channel and heartbeat transport
// behind a backend-agnostic interface: an in-memory backend for a
// single-binary run, Redis for a multi-process deployment.
package pubsub

import (
	"context"

	"github.com/gaps-tof/liftof-cc/internal/config"
)

// PubSub is a topic-based publish/subscribe transport.
type PubSub interface {
	Publish(ctx context.Context, topic string, message []byte) error
	Subscribe(ctx context.Context, topic string) Subscription
	Close() error
}

// Subscription delivers messages published to the topic it was created from.
type Subscription interface {
	Close() error
	Channel() <-chan []byte
}

// MakePubSub constructs the backend selected by cfg.Redis.Enabled.
func MakePubSub(ctx context.Context, cfg *config.Config) (PubSub, error) {
	if cfg.Redis.Enabled {
		return makeRedisPubSub(ctx, cfg)
	}
	return makeInMemoryPubSub(), nil
}
