// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package mapping

import "github.com/gaps-tof/liftof-cc/internal/events"

// MissingHit records a triggered channel that could not be resolved to an
// RB endpoint.
type MissingHit struct {
	EventID    uint32
	LTBID      uint8
	LTBDSI     uint8
	LTBJ       uint8
	LTBHitIdx  uint8
}

// ExpectedRBs walks the MTB event's per-LTB hit masks and returns the
// deduplicated set of (RB ID, RB channel) pairs a complete readout of this
// trigger would need to supply.
func (t *Tables) ExpectedRBs(mte events.MTBEvent) []RBChannelKey {
	rbs, _ := t.ExpectedRBsDebug(mte)
	return rbs
}

// ExpectedRBsDebug is ExpectedRBs plus the list of triggered channels that
// failed to resolve to an RB endpoint.
func (t *Tables) ExpectedRBsDebug(mte events.MTBEvent) ([]RBChannelKey, []MissingHit) {
	seen := make(map[RBChannelKey]struct{})
	var rbs []RBChannelKey
	var missing []MissingHit

	for _, hit := range mte.TriggerHits() {
		loc, ok := t.byLTBIndex[uint8(hit.LTBIndex)]
		if !ok {
			missing = append(missing, MissingHit{
				EventID:   mte.EventID,
				LTBID:     uint8(hit.LTBIndex),
				LTBHitIdx: hit.Channel,
			})
			continue
		}
		ep, ok := t.Endpoint(loc.DSI, loc.J, hit.Channel)
		if !ok {
			missing = append(missing, MissingHit{
				EventID:   mte.EventID,
				LTBID:     uint8(hit.LTBIndex),
				LTBDSI:    loc.DSI,
				LTBJ:      loc.J,
				LTBHitIdx: hit.Channel,
			})
			continue
		}
		key := RBChannelKey{RBID: ep.RBID, RBChannel: ep.RBChannel}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rbs = append(rbs, key)
	}
	return rbs, missing
}

// ExpectedRBIDs is ExpectedRBs collapsed to the set of distinct RB IDs,
// used by the event builder's Adaptive build strategies.
func (t *Tables) ExpectedRBIDs(mte events.MTBEvent) []uint8 {
	keys := t.ExpectedRBs(mte)
	seen := make(map[uint8]struct{}, len(keys))
	var ids []uint8
	for _, k := range keys {
		if _, ok := seen[k.RBID]; ok {
			continue
		}
		seen[k.RBID] = struct{}{}
		ids = append(ids, k.RBID)
	}
	return ids
}
