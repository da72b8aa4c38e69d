// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package eventbuilder_test

import (
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/eventbuilder"
	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/mapping"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *mapping.Tables {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&mapping.DSIChannelMap{}, &mapping.PaddleEndpoint{}, &mapping.MTBLinkRB{}, &mapping.LTBLocation{}))
	require.NoError(t, db.Create(&mapping.LTBLocation{LTBIndex: 0, DSI: 1, J: 1}).Error)
	require.NoError(t, db.Create(&mapping.LTBLocation{LTBIndex: 1, DSI: 1, J: 2}).Error)
	require.NoError(t, db.Create(&mapping.DSIChannelMap{DSI: 1, J: 1, Channel: 0, RBID: 5, RBChannel: 0}).Error)
	require.NoError(t, db.Create(&mapping.DSIChannelMap{DSI: 1, J: 2, Channel: 0, RBID: 6, RBChannel: 2}).Error)
	tables, err := mapping.Load(db)
	require.NoError(t, err)
	return tables
}

func TestBuilderEmitsOnAdaptiveComplete(t *testing.T) {
	tables := openTestDB(t)
	mteIn := make(chan events.MTBEvent, 4)
	rbIn := make(chan eventbuilder.RBArrival, 4)
	out := make(chan events.CompositeEvent, 4)
	tc := threadcontrol.New()

	cfg := config.BuilderConfig{Strategy: config.BuildStrategyAdaptive, TimeoutSec: 5, MTBBatchSize: 1, RBBatchSize: 40}
	b := eventbuilder.New(cfg, tables, mteIn, rbIn, out, tc, nil)

	mteIn <- events.MTBEvent{EventID: 1, LTBHitMasks: []uint16{0b01, 0b01}}
	rbIn <- eventbuilder.RBArrival{EventID: 1, Event: events.RBEvent{BoardID: 5}}
	rbIn <- eventbuilder.RBArrival{EventID: 1, Event: events.RBEvent{BoardID: 6}}

	go b.Run(1 * time.Millisecond)
	defer tc.Stop()

	select {
	case c := <-out:
		require.Equal(t, uint32(1), c.EventID)
		require.True(t, c.Complete())
		require.Len(t, c.RBs, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a composite event")
	}
}

func TestBuilderTimesOutWithMissingRBs(t *testing.T) {
	tables := openTestDB(t)
	mteIn := make(chan events.MTBEvent, 4)
	rbIn := make(chan eventbuilder.RBArrival, 4)
	out := make(chan events.CompositeEvent, 4)
	tc := threadcontrol.New()

	cfg := config.BuilderConfig{Strategy: config.BuildStrategyAdaptive, TimeoutSec: 0.01, MTBBatchSize: 1, RBBatchSize: 40}
	b := eventbuilder.New(cfg, tables, mteIn, rbIn, out, tc, nil)

	mteIn <- events.MTBEvent{EventID: 1, LTBHitMasks: []uint16{0b01, 0b01}}
	rbIn <- eventbuilder.RBArrival{EventID: 1, Event: events.RBEvent{BoardID: 5}}

	go b.Run(1 * time.Millisecond)
	defer tc.Stop()

	select {
	case c := <-out:
		require.Equal(t, uint32(1), c.EventID)
		require.False(t, c.Complete())
		require.Equal(t, []uint8{6}, c.MissingRBs)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a timed-out composite event")
	}
	require.Equal(t, uint64(1), b.Counters.TimedOut)
}

func TestBuilderRBFirstArrivalJoinsLaterMTB(t *testing.T) {
	tables := openTestDB(t)
	mteIn := make(chan events.MTBEvent, 4)
	rbIn := make(chan eventbuilder.RBArrival, 4)
	out := make(chan events.CompositeEvent, 4)
	tc := threadcontrol.New()

	cfg := config.BuilderConfig{Strategy: config.BuildStrategyWaitForN, WaitForN: 1, TimeoutSec: 5, MTBBatchSize: 1, RBBatchSize: 40}
	b := eventbuilder.New(cfg, tables, mteIn, rbIn, out, tc, nil)

	rbIn <- eventbuilder.RBArrival{EventID: 7, Event: events.RBEvent{BoardID: 5}}
	go b.Run(1 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	mteIn <- events.MTBEvent{EventID: 7}
	defer tc.Stop()

	select {
	case c := <-out:
		require.Equal(t, uint32(7), c.EventID)
		require.Len(t, c.RBs, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the RB-first entry to join its later MTB event")
	}
}

func TestBuilderFlushesOnStop(t *testing.T) {
	tables := openTestDB(t)
	mteIn := make(chan events.MTBEvent, 4)
	rbIn := make(chan eventbuilder.RBArrival, 4)
	out := make(chan events.CompositeEvent, 4)
	tc := threadcontrol.New()

	cfg := config.BuilderConfig{Strategy: config.BuildStrategyAdaptive, TimeoutSec: 100, MTBBatchSize: 1, RBBatchSize: 40}
	b := eventbuilder.New(cfg, tables, mteIn, rbIn, out, tc, nil)

	mteIn <- events.MTBEvent{EventID: 3, LTBHitMasks: []uint16{0b01}}

	done := make(chan struct{})
	go func() {
		b.Run(1 * time.Millisecond)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	tc.Stop()
	<-done

	select {
	case c := <-out:
		require.Equal(t, uint32(3), c.EventID)
	default:
		t.Fatal("expected the cache to flush on stop")
	}
}
