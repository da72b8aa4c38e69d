// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/redis/go-redis/v9"
)

type redisKV struct {
	client *redis.Client
}

func makeRedisKV(ctx context.Context, cfg *config.Config) (KV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("kv: connect to redis: %w", err)
	}
	return redisKV{client: client}, nil
}

func (kv redisKV) Has(ctx context.Context, key string) (bool, error) {
	n, err := kv.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (kv redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := kv.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("kv: key %q not found", key)
	}
	return v, err
}

func (kv redisKV) Set(ctx context.Context, key string, value []byte) error {
	return kv.client.Set(ctx, key, value, 0).Err()
}

func (kv redisKV) Delete(ctx context.Context, key string) error {
	return kv.client.Del(ctx, key).Err()
}

func (kv redisKV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return kv.client.Expire(ctx, key, ttl).Err()
}

func (kv redisKV) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	return kv.client.Scan(ctx, cursor, match, count).Result()
}

func (kv redisKV) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	return kv.client.RPush(ctx, key, value).Result()
}

func (kv redisKV) LDrain(ctx context.Context, key string) ([][]byte, error) {
	strs, err := kv.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if err := kv.client.Del(ctx, key).Err(); err != nil {
		return nil, err
	}
	out := make([][]byte, len(strs))
	for i, s := range strs {
		out[i] = []byte(s)
	}
	return out, nil
}

func (kv redisKV) Close() error { return kv.client.Close() }
