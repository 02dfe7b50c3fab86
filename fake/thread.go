// File: fake/thread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Simulated OS threads with a CPU affinity mask.

package fake

import (
	"sync"

	"github.com/momentics/hwbarrier/api"
	"golang.org/x/sys/unix"
)

// Thread is a simulated OS thread. The lowest CPU of its mask is the CPU it runs on.
type Thread struct {
	node *Node
	mu   sync.Mutex
	mask unix.CPUSet
}

var _ api.Thread = (*Thread)(nil)

// NewThread returns a thread allowed to run on every usable CPU of the node.
func (n *Node) NewThread() *Thread {
	return &Thread{node: n, mask: n.usable()}
}

// usable returns the online CPUs inside the process cpuset.
func (n *Node) usable() unix.CPUSet {
	n.mu.Lock()
	defer n.mu.Unlock()
	var set unix.CPUSet
	for cpu, p := range n.pes {
		if p.online && p.allowed {
			set.Set(cpu)
		}
	}
	return set
}

// Affinity implements api.Thread.
func (t *Thread) Affinity() (unix.CPUSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mask, nil
}

// SetAffinity implements api.Thread. The mask is narrowed to usable CPUs;
// nothing left makes it fail with EINVAL, like sched_setaffinity.
func (t *Thread) SetAffinity(set *unix.CPUSet) error {
	usable := t.node.usable()
	var next unix.CPUSet
	for i := range next {
		next[i] = set[i] & usable[i]
	}
	if next.Count() == 0 {
		return unix.EINVAL
	}
	t.mu.Lock()
	t.mask = next
	t.mu.Unlock()
	return nil
}

// Pin binds the thread to a single CPU.
func (t *Thread) Pin(cpu int) error {
	var set unix.CPUSet
	set.Set(cpu)
	return t.SetAffinity(&set)
}
