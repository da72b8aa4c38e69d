// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/kv"
	"github.com/stretchr/testify/require"
)

func TestInMemoryKVSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := kv.MakeKV(ctx, &config.Config{})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	has, err := store.Has(ctx, "a")
	require.NoError(t, err)
	require.True(t, has)

	v, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, store.Delete(ctx, "a"))
	has, err = store.Has(ctx, "a")
	require.NoError(t, err)
	require.False(t, has)
}

func TestInMemoryKVExpire(t *testing.T) {
	ctx := context.Background()
	store, err := kv.MakeKV(ctx, &config.Config{})
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	require.NoError(t, store.Expire(ctx, "a", -time.Second))
	has, err := store.Has(ctx, "a")
	require.NoError(t, err)
	require.False(t, has)
}

func TestInMemoryKVListOps(t *testing.T) {
	ctx := context.Background()
	store, err := kv.MakeKV(ctx, &config.Config{})
	require.NoError(t, err)

	n, err := store.RPush(ctx, "list", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = store.RPush(ctx, "list", []byte("y"))
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	items, err := store.LDrain(ctx, "list")
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("x"), []byte("y")}, items)

	items, err = store.LDrain(ctx, "list")
	require.NoError(t, err)
	require.Empty(t, items)
}
