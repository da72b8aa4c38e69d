// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package pubsub

import (
	"context"
	"fmt"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/redis/go-redis/v9"
)

func makeRedisPubSub(ctx context.Context, cfg *config.Config) (PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("pubsub: connect to redis: %w", err)
	}
	return redisPubSub{client: client}, nil
}

type redisPubSub struct {
	client *redis.Client
}

func (ps redisPubSub) Publish(ctx context.Context, topic string, message []byte) error {
	if err := ps.client.Publish(ctx, topic, message).Err(); err != nil {
		return fmt.Errorf("pubsub: publish to %q: %w", topic, err)
	}
	return nil
}

func (ps redisPubSub) Subscribe(ctx context.Context, topic string) Subscription {
	sub := ps.client.Subscribe(ctx, topic)
	return redisSubscription{sub: sub}
}

func (ps redisPubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("pubsub: close redis client: %w", err)
	}
	return nil
}

type redisSubscription struct {
	sub *redis.PubSub
}

func (s redisSubscription) Close() error {
	if err := s.sub.Close(); err != nil {
		return fmt.Errorf("pubsub: close redis subscription: %w", err)
	}
	return nil
}

func (s redisSubscription) Channel() <-chan []byte {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		for msg := range s.sub.Channel() {
			ch <- []byte(msg.Payload)
		}
	}()
	return ch
}
