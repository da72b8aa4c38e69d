// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

// Package threadcontrol tracks process-wide worker liveness: a stop flag
// and a per-thread heartbeat map. Each named worker pushes a heartbeat as
// it makes progress; callers can check whether a worker has gone quiet for
// longer than some bound, and request every worker to stop in lockstep.
package threadcontrol

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// ThreadControl is initialized once before any worker goroutine starts and
// joined after shutdown. The zero value is not usable; use
// New.
type ThreadControl struct {
	stop  atomic.Bool
	alive *xsync.Map[string, time.Time]
}

// New constructs an unstopped ThreadControl.
func New() *ThreadControl {
	return &ThreadControl{alive: xsync.NewMap[string, time.Time]()}
}

// Stop sets the process-wide stop flag. Idempotent.
func (t *ThreadControl) Stop() { t.stop.Store(true) }

// Stopped reports whether Stop has been called. Workers should observe this
// at the top of every loop iteration.
func (t *ThreadControl) Stopped() bool { return t.stop.Load() }

// Heartbeat records that the named worker is still making progress.
func (t *ThreadControl) Heartbeat(name string) {
	t.alive.Store(name, time.Now())
}

// LastSeen reports when the named worker last called Heartbeat.
func (t *ThreadControl) LastSeen(name string) (time.Time, bool) {
	return t.alive.Load(name)
}

// Hung reports whether the named worker's last heartbeat is older than
// the given bound, so a worker stuck past a shutdown deadline can be
// logged instead of silently waited on forever.
func (t *ThreadControl) Hung(name string, bound time.Duration) bool {
	last, ok := t.alive.Load(name)
	if !ok {
		return false
	}
	return time.Since(last) > bound
}

// Names returns every worker that has ever called Heartbeat.
func (t *ThreadControl) Names() []string {
	var names []string
	t.alive.Range(func(name string, _ time.Time) bool {
		names = append(names, name)
		return true
	})
	return names
}
