// File: fake/node.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Simulated barrier arbiter: blades, windows and the sync barrier of one node.

package fake

import (
	"fmt"
	"io"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hwbarrier/affinity"
	"github.com/momentics/hwbarrier/api"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type pe struct {
	cpu     int
	cmg     int
	ppe     int
	online  bool
	allowed bool
	windows []*blade // window index -> blade holding it
}

type blade struct {
	cmg, id  int
	owner    *channel
	members  unix.CPUSet
	assigned map[int]int // cpu -> window
	arrived  map[int]bool
	phase    uint64
	freeing  bool
	cond     *sync.Cond
}

type cmgState struct {
	id     int
	cpus   []int
	free   *queue.Queue // blade ids, FIFO
	blades []*blade
}

// Node is a simulated barrier arbiter for one machine. It enforces the same
// admission rules as the kernel driver and implements api.Diagnostics.
type Node struct {
	mu      sync.Mutex
	cfg     Config
	numCPUs int
	pes     map[int]*pe
	cmgs    []*cmgState
	log     *logrus.Entry
	fatal   func(msg string)
	broken  map[int]bool // cpus whose PE query fails
}

var _ api.Diagnostics = (*Node)(nil)

// NewNode builds a node from cfg. A nil log discards output.
func NewNode(cfg Config, log *logrus.Entry) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	n := &Node{
		cfg:    cfg,
		pes:    make(map[int]*pe),
		broken: make(map[int]bool),
		log:    log.WithField("component", "fake.node"),
	}
	n.fatal = func(msg string) { n.log.Fatal(msg) }

	offline := toSet(cfg.Offline)
	restricted := toSet(cfg.Restricted)
	for i, c := range cfg.CMGs {
		st := &cmgState{id: i, cpus: append([]int(nil), c.CPUs...), free: queue.New()}
		for b := 0; b < cfg.BladesPerCMG; b++ {
			bl := &blade{cmg: i, id: b, assigned: make(map[int]int), arrived: make(map[int]bool)}
			bl.cond = sync.NewCond(&n.mu)
			st.blades = append(st.blades, bl)
			st.free.Add(b)
		}
		for ppe, cpu := range c.CPUs {
			n.pes[cpu] = &pe{
				cpu:     cpu,
				cmg:     i,
				ppe:     ppe,
				online:  !offline[cpu],
				allowed: !restricted[cpu],
				windows: make([]*blade, cfg.WindowsPerPE),
			}
			if cpu+1 > n.numCPUs {
				n.numCPUs = cpu + 1
			}
		}
		n.cmgs = append(n.cmgs, st)
	}
	return n, nil
}

func toSet(cpus []int) map[int]bool {
	m := make(map[int]bool, len(cpus))
	for _, c := range cpus {
		m[c] = true
	}
	return m
}

// SetFatal replaces the handler invoked on an illegal sync. The default
// logs at fatal level, which exits the process like the hardware would.
func (n *Node) SetFatal(fn func(msg string)) {
	n.mu.Lock()
	n.fatal = fn
	n.mu.Unlock()
}

// NumCPUs returns the configured CPU count, offline ones included.
func (n *Node) NumCPUs() int { return n.numCPUs }

// CMGMask returns every CPU of cmg, online or not.
func (n *Node) CMGMask(cmg int) unix.CPUSet {
	var set unix.CPUSet
	if cmg >= 0 && cmg < len(n.cmgs) {
		for _, c := range n.cmgs[cmg].cpus {
			set.Set(c)
		}
	}
	return set
}

// SetOnline changes the online state of cpu.
func (n *Node) SetOnline(cpu int, online bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.pes[cpu]; ok {
		p.online = online
	}
}

// FailPEInfo makes PE queries issued from cpu fail with EIO while broken is set.
func (n *Node) FailPEInfo(cpu int, broken bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if broken {
		n.broken[cpu] = true
	} else {
		delete(n.broken, cpu)
	}
}

// HoldTeardown starts freeing a blade without finishing. Until the returned
// function runs, requests against the blade fail as torn down.
func (n *Node) HoldTeardown(cmg, bb int) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, err := n.bladeAt(cmg, bb)
	if err != nil {
		return nil, err
	}
	if b.owner == nil {
		return nil, fmt.Errorf("fake: CMG%d BB%d not allocated", cmg, bb)
	}
	b.freeing = true
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if b.freeing {
			n.reclaim(b)
		}
	}, nil
}

func (n *Node) bladeAt(cmg, bb int) (*blade, error) {
	if cmg < 0 || cmg >= len(n.cmgs) {
		return nil, fmt.Errorf("fake: no CMG%d", cmg)
	}
	if bb < 0 || bb >= len(n.cmgs[cmg].blades) {
		return nil, fmt.Errorf("fake: no BB%d in CMG%d", bb, cmg)
	}
	return n.cmgs[cmg].blades[bb], nil
}

// reclaim frees b, drops its windows and releases any PE waiting on it.
// Caller holds n.mu.
func (n *Node) reclaim(b *blade) {
	for cpu, w := range b.assigned {
		n.pes[cpu].windows[w] = nil
	}
	b.assigned = make(map[int]int)
	b.arrived = make(map[int]bool)
	b.phase++
	b.cond.Broadcast()
	b.owner = nil
	b.freeing = false
	b.members = unix.CPUSet{}
	n.cmgs[b.cmg].free.Add(b.id)
	n.log.WithFields(logrus.Fields{"cmg": b.cmg, "bb": b.id}).Debug("blade freed")
}

// complete finishes the current phase when every assigned PE has arrived.
// Caller holds n.mu.
func (n *Node) complete(b *blade) bool {
	if len(b.assigned) == 0 || len(b.arrived) < len(b.assigned) {
		return false
	}
	b.arrived = make(map[int]bool)
	b.phase++
	b.cond.Broadcast()
	return true
}

// runningCPU returns the CPU th executes on: the lowest CPU of its mask.
func runningCPU(th api.Thread) (int, error) {
	set, err := th.Affinity()
	if err != nil {
		return -1, err
	}
	if cpu := affinity.NextCPU(&set, -1); cpu >= 0 {
		return cpu, nil
	}
	return -1, unix.EINVAL
}

func (n *Node) sync(th api.Thread, window int) {
	cpu, err := runningCPU(th)
	n.mu.Lock()
	var p *pe
	if err == nil {
		p = n.pes[cpu]
	}
	if p == nil || window < 0 || window >= len(p.windows) || p.windows[window] == nil {
		fatal := n.fatal
		n.mu.Unlock()
		fatal(fmt.Sprintf("fake: illegal instruction: sync on unassigned window %d (cpu %d)", window, cpu))
		return
	}
	b := p.windows[window]
	b.arrived[cpu] = true
	if n.complete(b) {
		n.mu.Unlock()
		return
	}
	phase := b.phase
	for b.phase == phase {
		b.cond.Wait()
	}
	n.mu.Unlock()
}

// HWInfo implements api.Diagnostics.
func (n *Node) HWInfo() (api.TopologyInfo, error) {
	return api.TopologyInfo{
		CMGs:         len(n.cmgs),
		BladesPerCMG: n.cfg.BladesPerCMG,
		WindowsPerPE: n.cfg.WindowsPerPE,
		MaxPEPerCMG:  n.cfg.MaxPEPerCMG,
	}, nil
}

// UsedBlades implements api.Diagnostics.
func (n *Node) UsedBlades(cmg int) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if cmg < 0 || cmg >= len(n.cmgs) {
		return 0, fmt.Errorf("fake: no CMG%d", cmg)
	}
	var bm uint64
	for _, b := range n.cmgs[cmg].blades {
		if b.owner != nil {
			bm |= 1 << uint(b.id)
		}
	}
	return bm, nil
}

// UsedWindows implements api.Diagnostics.
func (n *Node) UsedWindows(cmg int) (map[int]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if cmg < 0 || cmg >= len(n.cmgs) {
		return nil, fmt.Errorf("fake: no CMG%d", cmg)
	}
	out := make(map[int]uint64)
	for _, cpu := range n.cmgs[cmg].cpus {
		var bm uint64
		for w, b := range n.pes[cpu].windows {
			if b != nil {
				bm |= 1 << uint(w)
			}
		}
		out[cpu] = bm
	}
	return out, nil
}

// InitSync implements api.Diagnostics. Both bitmaps are indexed by physical PE number.
func (n *Node) InitSync(cmg, bb int) (uint64, uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, err := n.bladeAt(cmg, bb)
	if err != nil {
		return 0, 0, err
	}
	var mask, bst uint64
	for _, cpu := range n.cmgs[cmg].cpus {
		p := n.pes[cpu]
		if b.members.IsSet(cpu) {
			mask |= 1 << uint(p.ppe)
		}
		if b.arrived[cpu] {
			bst |= 1 << uint(p.ppe)
		}
	}
	return mask, bst, nil
}
