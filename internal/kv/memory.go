// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package kv

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

type memValue struct {
	value []byte
	list  [][]byte
	ttl   time.Time // zero means no expiry
}

func (v memValue) expired() bool {
	return !v.ttl.IsZero() && v.ttl.Before(time.Now())
}

type inMemoryKV struct {
	store *xsync.Map[string, memValue]
	mu    sync.Mutex // guards read-modify-write on list operations
}

func makeInMemoryKV() KV {
	return &inMemoryKV{store: xsync.NewMap[string, memValue]()}
}

func (kv *inMemoryKV) Has(_ context.Context, key string) (bool, error) {
	v, ok := kv.store.Load(key)
	if !ok || v.expired() {
		return false, nil
	}
	return true, nil
}

func (kv *inMemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := kv.store.Load(key)
	if !ok || v.expired() {
		return nil, fmt.Errorf("kv: key %q not found", key)
	}
	return v.value, nil
}

func (kv *inMemoryKV) Set(_ context.Context, key string, value []byte) error {
	kv.store.Store(key, memValue{value: value})
	return nil
}

func (kv *inMemoryKV) Delete(_ context.Context, key string) error {
	kv.store.Delete(key)
	return nil
}

func (kv *inMemoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	v, ok := kv.store.Load(key)
	if !ok {
		return fmt.Errorf("kv: key %q not found", key)
	}
	if ttl <= 0 {
		kv.store.Delete(key)
		return nil
	}
	v.ttl = time.Now().Add(ttl)
	kv.store.Store(key, v)
	return nil
}

func (kv *inMemoryKV) Scan(_ context.Context, _ uint64, match string, _ int64) ([]string, uint64, error) {
	var keys []string
	kv.store.Range(func(key string, v memValue) bool {
		if v.expired() {
			kv.store.Delete(key)
			return true
		}
		if match == "" || strings.Contains(key, match) {
			keys = append(keys, key)
		}
		return true
	})
	return keys, 0, nil
}

func (kv *inMemoryKV) RPush(_ context.Context, key string, value []byte) (int64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, _ := kv.store.Load(key)
	v.list = append(v.list, value)
	kv.store.Store(key, v)
	return int64(len(v.list)), nil
}

func (kv *inMemoryKV) LDrain(_ context.Context, key string) ([][]byte, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.store.Load(key)
	if !ok {
		return nil, nil
	}
	kv.store.Delete(key)
	return v.list, nil
}

func (kv *inMemoryKV) Close() error { return nil }
