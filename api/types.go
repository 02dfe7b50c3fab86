// File: api/types.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core value types shared by the hwbarrier client, its backends and diagnostics.

package api

import "fmt"

// TopologyInfo describes the barrier resources of the running node.
// It is a snapshot; callers re-read it instead of caching.
type TopologyInfo struct {
	CMGs         int // Number of core memory groups (locality domains)
	BladesPerCMG int // Barrier blades per CMG
	WindowsPerPE int // Barrier windows per PE
	MaxPEPerCMG  int // Upper bound of PEs in one CMG
}

// Invalid CMG/physical PE numbers for offline or restricted CPUs.
const (
	InvalidCMG = 0xFF
	InvalidPPE = 0xFF
)

// PEInfo is the CMG and physical PE number of one logical CPU.
type PEInfo struct {
	CMG        uint8
	PhysicalPE uint8
}

// InvalidPE marks a CPU that could not be probed.
var InvalidPE = PEInfo{CMG: InvalidCMG, PhysicalPE: InvalidPPE}

// Valid reports whether p identifies a real PE.
func (p PEInfo) Valid() bool {
	return p.CMG != InvalidCMG || p.PhysicalPE != InvalidPPE
}

func (p PEInfo) String() string {
	if !p.Valid() {
		return "INVALID"
	}
	return fmt.Sprintf("cmg: %d, ppe: %d", p.CMG, p.PhysicalPE)
}

const (
	bdBladeShift = 0
	bdCMGShift   = 8
	bdFieldMask  = 0xFF
)

// Descriptor identifies an allocated barrier blade. It is immutable and
// may be copied freely between goroutines. The zero value is invalid.
type Descriptor struct {
	cmg uint8
	bb  uint8
	ok  bool
}

// NewDescriptor packs a (cmg, blade) pair granted by the arbiter.
func NewDescriptor(cmg, bb uint8) Descriptor {
	return Descriptor{cmg: cmg, bb: bb, ok: true}
}

// DescriptorFromRaw decodes the integer form returned by Raw.
// Values outside 16 bits yield an invalid descriptor.
func DescriptorFromRaw(raw int) Descriptor {
	if raw < 0 || raw > 0xFFFF {
		return Descriptor{}
	}
	return NewDescriptor(uint8((raw>>bdCMGShift)&bdFieldMask), uint8((raw>>bdBladeShift)&bdFieldMask))
}

// CMG returns the CMG number of the blade.
func (d Descriptor) CMG() int { return int(d.cmg) }

// Blade returns the blade number within its CMG.
func (d Descriptor) Blade() int { return int(d.bb) }

// Valid reports whether d came from an allocation or DescriptorFromRaw.
func (d Descriptor) Valid() bool { return d.ok }

// Raw encodes d as cmg<<8 | blade, or -1 for an invalid descriptor.
func (d Descriptor) Raw() int {
	if !d.ok {
		return -1
	}
	return int(d.cmg)<<bdCMGShift | int(d.bb)<<bdBladeShift
}

func (d Descriptor) String() string {
	if !d.ok {
		return "bd(invalid)"
	}
	return fmt.Sprintf("bd(0x%x cmg=%d bb=%d)", d.Raw(), d.cmg, d.bb)
}

// WindowAuto lets the arbiter choose any free window.
const WindowAuto = -1

// MaxWindowIndex bounds the signed 8-bit window field of the arbiter protocol.
const MaxWindowIndex = 127
