// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package mapping

import "time"

// Manifest ties a loaded mapping snapshot to the geometry revision it came
// from, the way the detector-entity metadata (manifest.rs's ReadoutBoard,
// LocalTriggerBoard, Paddle records) is versioned against a database
// revision rather than baked into the binary. heartbeat.Record has a
// ManifestRevision field for the revision string, but the core's heartbeat
// sources leave it empty: no worker builds a Manifest or stamps it into a
// heartbeat or run record.
type Manifest struct {
	// Revision is an opaque, monotonically increasing geometry-table
	// revision identifier (e.g. a migration version or commit of the
	// calibration database), supplied by whatever loaded the DB connection.
	Revision string
	LoadedAt time.Time

	NDSIChannelRows int
	NPaddleRows     int
	NLinkRows       int
	NLTBLocationRows int
}

// Describe summarizes the table row counts a Tables snapshot was built
// from, for inclusion in a Manifest.
func (t *Tables) Describe() (dsi, paddle, link, ltb int) {
	return len(t.byDSIJChannel), len(t.byPaddleID), len(t.byLinkIdx), len(t.byLTBIndex)
}

// NewManifest builds a Manifest for a freshly loaded Tables snapshot.
func NewManifest(revision string, loadedAt time.Time, t *Tables) Manifest {
	dsi, paddle, link, ltb := t.Describe()
	return Manifest{
		Revision: revision, LoadedAt: loadedAt,
		NDSIChannelRows: dsi, NPaddleRows: paddle, NLinkRows: link, NLTBLocationRows: ltb,
	}
}
