// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbacquirer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry holds one Acquirer goroutine handle per readout board, keyed by
// RB ID. Reads (dispatching a control command to a board, reporting status)
// come from the control-command hot path far more often than writes
// (registering a board at startup, deregistering on shutdown), so the
// registry uses an xsync.Map rather than a sync.Mutex-guarded plain map.
type Registry struct {
	boards *xsync.Map[uint8, *boardHandle]
	log    *slog.Logger
}

type boardHandle struct {
	acquirer *Acquirer
	stop     func()
	done     chan struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{boards: xsync.NewMap[uint8, *boardHandle](), log: log}
}

// Register adds a board's Acquirer to the registry and starts its
// acquisition loop in a new goroutine. stop is called to signal the
// goroutine to exit; Deregister waits for it via done.
func (r *Registry) Register(a *Acquirer, tick time.Duration, stop func(), done chan struct{}) error {
	h := &boardHandle{acquirer: a, stop: stop, done: done}
	if _, loaded := r.boards.LoadOrStore(a.RBID, h); loaded {
		return fmt.Errorf("rbacquirer: board %d already registered", a.RBID)
	}
	go func() {
		defer close(done)
		a.Run(tick)
	}()
	return nil
}

// Get returns the Acquirer for an RB ID, if registered.
func (r *Registry) Get(rbID uint8) (*Acquirer, bool) {
	h, ok := r.boards.Load(rbID)
	if !ok {
		return nil, false
	}
	return h.acquirer, true
}

// Deregister stops a board's acquisition loop and removes it from the
// registry, blocking until the goroutine has exited.
func (r *Registry) Deregister(rbID uint8) error {
	h, ok := r.boards.LoadAndDelete(rbID)
	if !ok {
		return fmt.Errorf("rbacquirer: board %d not registered", rbID)
	}
	h.stop()
	<-h.done
	return nil
}

// IDs returns the RB IDs currently registered, in no particular order.
func (r *Registry) IDs() []uint8 {
	ids := make([]uint8, 0, r.boards.Size())
	r.boards.Range(func(id uint8, _ *boardHandle) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// StartAll calls Start on every registered board's Acquirer, used on
// run-start to reset all boards' event counters and DMA occupancy together.
// Errors from individual boards are collected and returned jointly rather
// than aborting the remaining boards.
func (r *Registry) StartAll() error {
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	r.boards.Range(func(id uint8, h *boardHandle) bool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.acquirer.Start(); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("rb %d: %w", id, err))
				mu.Unlock()
			}
		}()
		return true
	})
	wg.Wait()
	if len(errs) > 0 {
		return fmt.Errorf("rbacquirer: run-start failed on %d board(s): %v", len(errs), errs)
	}
	return nil
}

// DeregisterAll stops every registered board's acquisition loop.
func (r *Registry) DeregisterAll() {
	for _, id := range r.IDs() {
		if err := r.Deregister(id); err != nil {
			r.log.Warn("rbacquirer deregister failed", "rb_id", id, "error", err)
		}
	}
}
