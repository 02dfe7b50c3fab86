//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific thread affinity via sched_getaffinity/sched_setaffinity.

package affinity

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/momentics/hwbarrier/api"
	"golang.org/x/sys/unix"
)

const sysfsCPUDir = "/sys/devices/system/cpu"

// OSThread is the calling OS thread. The goroutine that created it stays
// locked to that thread until Unlock, so the kernel and the library agree on
// which PE issues each barrier request. An OSThread must only be used from
// the goroutine that created it.
type OSThread struct {
	locked bool
	saved  unix.CPUSet
	known  bool // saved holds the mask seen at LockThread
}

var _ api.Thread = (*OSThread)(nil)

// LockThread locks the calling goroutine to its OS thread and records the
// thread's CPU mask.
func LockThread() *OSThread {
	runtime.LockOSThread()
	t := &OSThread{locked: true}
	if err := unix.SchedGetaffinity(0, &t.saved); err == nil {
		t.known = true
	}
	return t
}

// Restore puts back the CPU mask the thread had at LockThread.
func (t *OSThread) Restore() error {
	if !t.known {
		return fmt.Errorf("affinity: initial mask unknown")
	}
	return t.SetAffinity(&t.saved)
}

// Unlock restores the initial mask and releases the goroutine from its OS
// thread. If the mask cannot be restored the goroutine stays locked, so the
// runtime discards the thread when the goroutine exits.
func (t *OSThread) Unlock() {
	if !t.locked {
		return
	}
	if err := t.Restore(); err != nil {
		return
	}
	t.locked = false
	runtime.UnlockOSThread()
}

// Affinity returns the CPU mask of the calling thread.
func (t *OSThread) Affinity() (unix.CPUSet, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return set, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	return set, nil
}

// SetAffinity replaces the CPU mask of the calling thread.
func (t *OSThread) SetAffinity(set *unix.CPUSet) error {
	if err := unix.SchedSetaffinity(0, set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity: %w", err)
	}
	return nil
}

// Pin binds the calling thread to exactly one CPU.
func (t *OSThread) Pin(cpu int) error {
	set := Single(cpu)
	return t.SetAffinity(&set)
}

// ConfiguredCPUs returns the number of CPUs configured on the node, offline
// ones included. It counts the cpuN entries of sysfs and falls back to
// runtime.NumCPU when sysfs is unreadable.
func ConfiguredCPUs() int {
	entries, err := os.ReadDir(sysfsCPUDir)
	if err != nil {
		return runtime.NumCPU()
	}
	n := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "cpu") {
			continue
		}
		if _, err := strconv.Atoi(name[len("cpu"):]); err == nil {
			n++
		}
	}
	if n == 0 {
		return runtime.NumCPU()
	}
	return n
}
