// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package rbacquirer_test

import (
	"testing"
	"time"

	"github.com/gaps-tof/liftof-cc/internal/rbacquirer"
	"github.com/gaps-tof/liftof-cc/internal/threadcontrol"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct{ n uint32 }

func (f *fakeCounter) EventCounter() (uint32, error) { return f.n, nil }

func newTestAcquirer(rbID uint8, tc *threadcontrol.ThreadControl) *rbacquirer.Acquirer {
	bufA := rbacquirer.NewMemDMABuffer(1024)
	bufB := rbacquirer.NewMemDMABuffer(1024)
	sizer := rbacquirer.NEventsTrip{K: 1}
	sink := make(chan []byte, 4)
	return rbacquirer.NewAcquirer(rbID, bufA, bufB, sizer, &fakeCounter{}, nil, sink, tc, nil)
}

func TestRegistryRegisterGetDeregister(t *testing.T) {
	reg := rbacquirer.NewRegistry(nil)
	tc := threadcontrol.New()
	a := newTestAcquirer(3, tc)

	stopped := make(chan struct{})
	done := make(chan struct{})
	require.NoError(t, reg.Register(a, time.Millisecond, func() { close(stopped); tc.Stop() }, done))

	got, ok := reg.Get(3)
	require.True(t, ok)
	require.Equal(t, a, got)
	require.ElementsMatch(t, []uint8{3}, reg.IDs())

	require.NoError(t, reg.Deregister(3))
	_, ok = reg.Get(3)
	require.False(t, ok)
}

func TestRegistryRegisterDuplicateFails(t *testing.T) {
	reg := rbacquirer.NewRegistry(nil)
	tc := threadcontrol.New()
	a1 := newTestAcquirer(5, tc)
	a2 := newTestAcquirer(5, tc)

	done1 := make(chan struct{})
	require.NoError(t, reg.Register(a1, time.Millisecond, func() { tc.Stop() }, done1))
	defer func() {
		tc.Stop()
		<-done1
	}()

	done2 := make(chan struct{})
	err := reg.Register(a2, time.Millisecond, func() {}, done2)
	require.Error(t, err)
}

func TestRegistryStartAll(t *testing.T) {
	reg := rbacquirer.NewRegistry(nil)
	tc := threadcontrol.New()
	tc.Stop()

	for _, id := range []uint8{1, 2, 3} {
		done := make(chan struct{})
		require.NoError(t, reg.Register(newTestAcquirer(id, tc), time.Millisecond, func() {}, done))
	}
	require.NoError(t, reg.StartAll())
}
