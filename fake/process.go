// File: fake/process.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Simulated processes and their device channels.

package fake

import (
	"sync"

	"github.com/momentics/hwbarrier/affinity"
	"github.com/momentics/hwbarrier/api"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Process is one simulated client process on a Node. It implements api.Backend.
type Process struct {
	node *Node

	mu       sync.Mutex
	channels []*channel
	openErr  error
	exited   bool
	opened   int
}

var _ api.Backend = (*Process)(nil)

// Process creates a new client process attached to n.
func (n *Node) Process() *Process {
	return &Process{node: n}
}

// FailOpen makes every following Open return err. A nil err restores normal behavior.
func (p *Process) FailOpen(err error) {
	p.mu.Lock()
	p.openErr = err
	p.mu.Unlock()
}

// Opened returns how many channels the process has opened so far.
func (p *Process) Opened() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened
}

// Open implements api.Backend.
func (p *Process) Open() (api.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return nil, unix.ESRCH
	}
	if p.openErr != nil {
		return nil, p.openErr
	}
	ch := &channel{node: p.node}
	p.channels = append(p.channels, ch)
	p.opened++
	return ch, nil
}

// Sync implements api.Backend.
func (p *Process) Sync(th api.Thread, window int) { p.node.sync(th, window) }

// NumCPUs implements api.Backend.
func (p *Process) NumCPUs() int { return p.node.numCPUs }

// Exit terminates the process without any cleanup by the client. Every
// channel it still holds is closed and the node reclaims its blades.
func (p *Process) Exit() {
	p.mu.Lock()
	chans := p.channels
	p.channels = nil
	p.exited = true
	p.mu.Unlock()
	for _, ch := range chans {
		_ = ch.Close()
	}
}

type channel struct {
	node   *Node
	closed bool // guarded by node.mu
}

func fail(code api.ErrorCode, errno unix.Errno) *api.Error {
	return api.NewError("", code, errno)
}

func (ch *channel) AllocBlade(mask *unix.CPUSet) (uint8, uint8, error) {
	n := ch.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch.closed {
		return 0, 0, fail(api.ErrCodeTransport, unix.EBADF)
	}
	if mask == nil {
		return 0, 0, fail(api.ErrCodeTransport, unix.EFAULT)
	}
	cmg, count := -1, 0
	for cpu := affinity.NextCPU(mask, -1); cpu >= 0; cpu = affinity.NextCPU(mask, cpu) {
		p := n.pes[cpu]
		if p == nil || !p.online {
			return 0, 0, fail(api.ErrCodeInvalidMask, unix.EINVAL).WithContext("cpu", cpu)
		}
		if cmg >= 0 && p.cmg != cmg {
			return 0, 0, fail(api.ErrCodeInvalidMask, unix.EINVAL).WithContext("cpu", cpu)
		}
		cmg = p.cmg
		count++
	}
	if count < 2 {
		return 0, 0, fail(api.ErrCodeInvalidMask, unix.EINVAL).WithContext("members", count)
	}
	st := n.cmgs[cmg]
	if st.free.Length() == 0 {
		return 0, 0, fail(api.ErrCodeResourceExhausted, unix.EBUSY).WithContext("cmg", cmg)
	}
	b := st.blades[st.free.Remove().(int)]
	b.owner = ch
	b.members = *mask
	n.log.WithFields(logrus.Fields{"cmg": cmg, "bb": b.id, "members": count}).Debug("blade allocated")
	return uint8(cmg), uint8(b.id), nil
}

func (ch *channel) FreeBlade(cmg, bb uint8) error {
	n := ch.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch.closed {
		return fail(api.ErrCodeTransport, unix.EBADF)
	}
	b, err := n.bladeAt(int(cmg), int(bb))
	if err != nil || b.owner != ch {
		return fail(api.ErrCodeNotAllocated, unix.EINVAL)
	}
	if b.freeing {
		return fail(api.ErrCodeInUse, unix.EPERM)
	}
	n.reclaim(b)
	return nil
}

// boundPE returns the single PE th is pinned to. Caller holds node.mu.
func (ch *channel) boundPE(th api.Thread) (*pe, error) {
	set, err := th.Affinity()
	if err != nil || set.Count() != 1 {
		return nil, fail(api.ErrCodeNotBound, unix.EPERM)
	}
	cpu := affinity.NextCPU(&set, -1)
	p := ch.node.pes[cpu]
	if p == nil {
		return nil, fail(api.ErrCodeNotBound, unix.EPERM)
	}
	return p, nil
}

// ownedBlade finds blade bb of cmg owned by ch. The PE p must belong to
// the same CMG. Caller holds node.mu.
func (ch *channel) ownedBlade(p *pe, cmg, bb uint8) (*blade, error) {
	b, err := ch.node.bladeAt(int(cmg), int(bb))
	if err != nil || b.owner != ch {
		return nil, fail(api.ErrCodeNotAllocated, unix.EINVAL)
	}
	if p.cmg != int(cmg) {
		return nil, fail(api.ErrCodeNotAMember, unix.EINVAL).
			WithContext("pe_cmg", p.cmg).WithContext("cmg", cmg)
	}
	return b, nil
}

func (ch *channel) AssignWindow(th api.Thread, cmg, bb uint8, window int8) (int8, error) {
	n := ch.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch.closed {
		return 0, fail(api.ErrCodeTransport, unix.EBADF)
	}
	p, err := ch.boundPE(th)
	if err != nil {
		return 0, err
	}
	b, err := ch.ownedBlade(p, cmg, bb)
	if err != nil {
		return 0, err
	}
	if b.freeing {
		return 0, fail(api.ErrCodeTornDown, unix.EPERM)
	}
	if !b.members.IsSet(p.cpu) {
		return 0, fail(api.ErrCodeNotAMember, unix.EINVAL)
	}
	if _, dup := b.assigned[p.cpu]; dup {
		return 0, fail(api.ErrCodeAlreadyAssigned, unix.EINVAL)
	}

	w := int(window)
	switch {
	case window == api.WindowAuto:
		w = -1
		for i, holder := range p.windows {
			if holder == nil {
				w = i
				break
			}
		}
		if w < 0 {
			return 0, fail(api.ErrCodeWindowBusy, unix.EBUSY)
		}
	case w < 0 || w >= len(p.windows):
		return 0, fail(api.ErrCodeInvalidWindow, unix.EINVAL)
	case p.windows[w] != nil:
		return 0, fail(api.ErrCodeWindowBusy, unix.EBUSY)
	}
	p.windows[w] = b
	b.assigned[p.cpu] = w
	return int8(w), nil
}

func (ch *channel) UnassignWindow(th api.Thread, cmg, bb uint8) error {
	n := ch.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch.closed {
		return fail(api.ErrCodeTransport, unix.EBADF)
	}
	p, err := ch.boundPE(th)
	if err != nil {
		return err
	}
	b, err := ch.ownedBlade(p, cmg, bb)
	if err != nil {
		return err
	}
	if b.freeing {
		return fail(api.ErrCodeTornDown, unix.EPERM)
	}
	w, ok := b.assigned[p.cpu]
	if !ok {
		return fail(api.ErrCodeNotAssigned, unix.EINVAL)
	}
	delete(b.assigned, p.cpu)
	delete(b.arrived, p.cpu)
	p.windows[w] = nil
	n.complete(b)
	return nil
}

func (ch *channel) PEInfo(th api.Thread) (api.PEInfo, error) {
	n := ch.node
	cpu, err := runningCPU(th)
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch.closed {
		return api.InvalidPE, fail(api.ErrCodeTransport, unix.EBADF)
	}
	if err != nil {
		return api.InvalidPE, fail(api.ErrCodeQueryFailed, unix.EINVAL)
	}
	p := n.pes[cpu]
	if p == nil {
		return api.InvalidPE, fail(api.ErrCodeQueryFailed, unix.EINVAL)
	}
	if n.broken[cpu] {
		return api.InvalidPE, fail(api.ErrCodeQueryFailed, unix.EIO).WithContext("cpu", cpu)
	}
	return api.PEInfo{CMG: uint8(p.cmg), PhysicalPE: uint8(p.ppe)}, nil
}

// Close releases the channel. Blades it still owns are reclaimed.
func (ch *channel) Close() error {
	n := ch.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch.closed {
		return unix.EBADF
	}
	ch.closed = true
	for _, st := range n.cmgs {
		for _, b := range st.blades {
			if b.owner == ch {
				n.reclaim(b)
			}
		}
	}
	return nil
}
