// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package mapping loads the read-only static tables that translate trigger
// hardware addressing (DSI/J/channel, MTB-link index) into readout-board
// addressing (RB ID, RB channel, paddle ID), and exposes pure lookup
// functions over them. Tables are loaded once at startup via gorm; the
// rest of the application only ever queries them through accessor
// methods, never through gorm directly.
package mapping

import (
	"gorm.io/gorm"
)

// DSIChannelMap is one row of the DSI/J/channel → RB endpoint table.
type DSIChannelMap struct {
	ID        uint `gorm:"primaryKey"`
	DSI       uint8
	J         uint8
	Channel   uint8
	RBID      uint8
	RBChannel uint8
	PanelID   uint16
	PaddleEnd uint8 // 0 = end A, 1 = end B
}

// TableName pins the gorm table name independent of struct renames.
func (DSIChannelMap) TableName() string { return "dsi_channel_map" }

// PaddleEndpoint is one row of the paddle ID → RB endpoints table.
type PaddleEndpoint struct {
	ID           uint `gorm:"primaryKey"`
	PaddleID     uint16
	RBIDA        uint8
	RBChannelA   uint8
	RBIDB        uint8
	RBChannelB   uint8
	CableLengthM float64
	PaddleLenMM  float64
}

// TableName pins the gorm table name independent of struct renames.
func (PaddleEndpoint) TableName() string { return "paddle_endpoint" }

// MTBLinkRB is one row of the MTB-link index → RB ID table.
type MTBLinkRB struct {
	ID       uint `gorm:"primaryKey"`
	LinkIdx  uint8
	RBID     uint8
}

// TableName pins the gorm table name independent of struct renames.
func (MTBLinkRB) TableName() string { return "mtb_link_rb" }

// LTBLocation resolves the position of an LTB hit-mask word within an MTB
// event's LTBHitMasks list to its physical (DSI, J) connector, the address
// used to look up a triggered channel's RB endpoint.
type LTBLocation struct {
	ID       uint `gorm:"primaryKey"`
	LTBIndex uint8
	DSI      uint8
	J        uint8
}

// TableName pins the gorm table name independent of struct renames.
func (LTBLocation) TableName() string { return "ltb_location" }

// RBChannelKey identifies one physical digitizer channel.
type RBChannelKey struct {
	RBID      uint8
	RBChannel uint8
}

// Tables is the in-memory, read-only snapshot of the mapping DB, indexed
// for the pure lookup functions in lookup.go. It is built once at startup
// and never mutated afterward.
type Tables struct {
	byDSIJChannel map[dsiJChannelKey]DSIChannelMap
	byPaddleID    map[uint16]PaddleEndpoint
	byLinkIdx     map[uint8]uint8
	byLTBIndex    map[uint8]LTBLocation
}

type dsiJChannelKey struct {
	dsi, j, channel uint8
}

// Load reads all four tables through the given gorm connection and builds
// the indexed snapshot used by ExpectedRBs/ExpectedRBsDebug.
func Load(db *gorm.DB) (*Tables, error) {
	var dsiRows []DSIChannelMap
	if err := db.Find(&dsiRows).Error; err != nil {
		return nil, err
	}
	var paddleRows []PaddleEndpoint
	if err := db.Find(&paddleRows).Error; err != nil {
		return nil, err
	}
	var linkRows []MTBLinkRB
	if err := db.Find(&linkRows).Error; err != nil {
		return nil, err
	}
	var ltbRows []LTBLocation
	if err := db.Find(&ltbRows).Error; err != nil {
		return nil, err
	}

	t := &Tables{
		byDSIJChannel: make(map[dsiJChannelKey]DSIChannelMap, len(dsiRows)),
		byPaddleID:    make(map[uint16]PaddleEndpoint, len(paddleRows)),
		byLinkIdx:     make(map[uint8]uint8, len(linkRows)),
		byLTBIndex:    make(map[uint8]LTBLocation, len(ltbRows)),
	}
	for _, r := range dsiRows {
		t.byDSIJChannel[dsiJChannelKey{r.DSI, r.J, r.Channel}] = r
	}
	for _, r := range paddleRows {
		t.byPaddleID[r.PaddleID] = r
	}
	for _, r := range linkRows {
		t.byLinkIdx[r.LinkIdx] = r.RBID
	}
	for _, r := range ltbRows {
		t.byLTBIndex[r.LTBIndex] = r
	}
	return t, nil
}

// RBForLink resolves an MTB-link index to its RB ID.
func (t *Tables) RBForLink(linkIdx uint8) (uint8, bool) {
	rb, ok := t.byLinkIdx[linkIdx]
	return rb, ok
}

// Endpoint resolves a DSI/J/channel triple to its RB endpoint row.
func (t *Tables) Endpoint(dsi, j, channel uint8) (DSIChannelMap, bool) {
	e, ok := t.byDSIJChannel[dsiJChannelKey{dsi, j, channel}]
	return e, ok
}

// Paddle resolves a paddle ID to its endpoint row.
func (t *Tables) Paddle(paddleID uint16) (PaddleEndpoint, bool) {
	p, ok := t.byPaddleID[paddleID]
	return p, ok
}
