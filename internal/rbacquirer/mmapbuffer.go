// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

//go:build linux

package rbacquirer

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// occHeaderBytes reserves the first 8 bytes of the mapped region for a
// little-endian occupancy counter written by the board's DMA engine; the
// remaining mapped bytes are the ring buffer itself.
const occHeaderBytes = 8

// MmapDMABuffer is a DMABuffer backed by a memory-mapped file — in
// production a /dev/mem-style character device exposing one board's DMA
// region, in a bench deployment a plain regular file pre-sized to
// occHeaderBytes+capacity.
type MmapDMABuffer struct {
	file *os.File
	mem  []byte
	cap  uint64
}

// OpenMmapDMABuffer maps path's first occHeaderBytes+capacity bytes.
func OpenMmapDMABuffer(path string, capacity uint64) (*MmapDMABuffer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("rbacquirer: open dma region %s: %w", path, err)
	}
	size := int(occHeaderBytes + capacity)
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("rbacquirer: mmap dma region %s: %w", path, err)
	}
	return &MmapDMABuffer{file: f, mem: mem, cap: capacity}, nil
}

func (b *MmapDMABuffer) Occupancy() (uint64, error) {
	return binary.LittleEndian.Uint64(b.mem[:occHeaderBytes]), nil
}

func (b *MmapDMABuffer) ReadRange(start, end uint64) ([]byte, error) {
	if end < start || end-start > b.cap {
		return nil, fmt.Errorf("rbacquirer: invalid range [%d,%d) over capacity %d", start, end, b.cap)
	}
	out := make([]byte, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, b.mem[occHeaderBytes+i%b.cap])
	}
	return out, nil
}

// ResetOccupancy zeroes the occupancy counter. It does not reset the
// board's DMA write pointer, and nothing in this package issues a front-end
// soft reset, neither on run-start nor on a flip.
func (b *MmapDMABuffer) ResetOccupancy() error {
	binary.LittleEndian.PutUint64(b.mem[:occHeaderBytes], 0)
	return nil
}

func (b *MmapDMABuffer) Capacity() uint64 { return b.cap }

// Close unmaps the region and closes the backing file.
func (b *MmapDMABuffer) Close() error {
	if err := unix.Munmap(b.mem); err != nil {
		return err
	}
	return b.file.Close()
}
