// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbacquirer

import "github.com/gaps-tof/liftof-cc/internal/rbevent"

// SplitFrames carves a raw DMA block — the bytes written to the sink
// channel on a buffer flip — into the individual RB frames it contains,
// using each frame's own length field rather than assuming EventSize-aligned
// records.
func SplitFrames(block []byte) [][]byte {
	var frames [][]byte
	for len(block) > 0 {
		n, ok := rbevent.FrameByteLength(block)
		if !ok || n <= 0 || n > len(block) {
			break
		}
		frames = append(frames, block[:n])
		block = block[n:]
	}
	return frames
}
