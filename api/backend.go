// File: api/backend.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Request/response boundary with the barrier arbiter (kernel driver or simulator).

package api

import "golang.org/x/sys/unix"

// Thread is the OS thread a barrier operation is issued from.
// Its affinity decides which PE the arbiter sees as the caller.
type Thread interface {
	// Affinity returns the thread's current CPU mask.
	Affinity() (unix.CPUSet, error)
	// SetAffinity replaces the thread's CPU mask.
	SetAffinity(set *unix.CPUSet) error
}

// Backend provides device channels and the hardware wait for one process.
type Backend interface {
	// Open opens a new channel to the arbiter.
	Open() (Channel, error)
	// Sync waits on the given window of the calling PE.
	// Syncing a window that is not assigned terminates the process.
	Sync(th Thread, window int)
	// NumCPUs returns the number of configured logical CPUs, offline ones included.
	NumCPUs() int
}

// Channel is an open session with the arbiter. Blades allocated through a
// channel belong to it and are reclaimed by the arbiter when it closes.
type Channel interface {
	AllocBlade(mask *unix.CPUSet) (cmg, bb uint8, err error)
	FreeBlade(cmg, bb uint8) error
	// AssignWindow and UnassignWindow act for the PE th is bound to, which
	// must belong to CMG cmg.
	AssignWindow(th Thread, cmg, bb uint8, window int8) (int8, error)
	UnassignWindow(th Thread, cmg, bb uint8) error
	PEInfo(th Thread) (PEInfo, error)
	Close() error
}

// Diagnostics exposes the arbiter's read-only resource state.
type Diagnostics interface {
	// HWInfo returns the topology fact sheet.
	HWInfo() (TopologyInfo, error)
	// UsedBlades returns the bitmap of allocated blades in cmg.
	UsedBlades(cmg int) (uint64, error)
	// UsedWindows returns per-CPU bitmaps of assigned windows in cmg, keyed by cpuid.
	UsedWindows(cmg int) (map[int]uint64, error)
	// InitSync returns the member mask and pending sync state of one blade.
	InitSync(cmg, bb int) (mask, bst uint64, err error)
}
