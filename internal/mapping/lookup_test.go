// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package mapping_test

import (
	"testing"

	"github.com/gaps-tof/liftof-cc/internal/events"
	"github.com/gaps-tof/liftof-cc/internal/mapping"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&mapping.DSIChannelMap{}, &mapping.PaddleEndpoint{}, &mapping.MTBLinkRB{}, &mapping.LTBLocation{}))
	require.NoError(t, db.Create(&mapping.LTBLocation{LTBIndex: 0, DSI: 1, J: 1}).Error)
	require.NoError(t, db.Create(&mapping.LTBLocation{LTBIndex: 1, DSI: 1, J: 2}).Error)
	require.NoError(t, db.Create(&mapping.DSIChannelMap{DSI: 1, J: 1, Channel: 0, RBID: 5, RBChannel: 0, PaddleEnd: 0}).Error)
	require.NoError(t, db.Create(&mapping.DSIChannelMap{DSI: 1, J: 2, Channel: 0, RBID: 6, RBChannel: 2, PaddleEnd: 1}).Error)
	return db
}

func TestExpectedRBsResolvesHits(t *testing.T) {
	db := openTestDB(t)
	tables, err := mapping.Load(db)
	require.NoError(t, err)

	mte := events.MTBEvent{EventID: 1, LTBHitMasks: []uint16{0b01, 0b01}}
	rbs, missing := tables.ExpectedRBsDebug(mte)
	require.Empty(t, missing)
	require.ElementsMatch(t, []mapping.RBChannelKey{{RBID: 5, RBChannel: 0}, {RBID: 6, RBChannel: 2}}, rbs)
}

func TestExpectedRBsDebugReportsMissingHit(t *testing.T) {
	db := openTestDB(t)
	tables, err := mapping.Load(db)
	require.NoError(t, err)

	mte := events.MTBEvent{EventID: 2, LTBHitMasks: []uint16{0b0100}}
	rbs, missing := tables.ExpectedRBsDebug(mte)
	require.Empty(t, rbs)
	require.Len(t, missing, 1)
	require.Equal(t, uint32(2), missing[0].EventID)
}

func TestExpectedRBsDedupes(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&mapping.DSIChannelMap{DSI: 1, J: 2, Channel: 0, RBID: 5, RBChannel: 0}).Error)
	tables, err := mapping.Load(db)
	require.NoError(t, err)

	mte := events.MTBEvent{EventID: 3, LTBHitMasks: []uint16{0b01, 0b01}}
	rbs := tables.ExpectedRBs(mte)
	require.Len(t, rbs, 1)
}
