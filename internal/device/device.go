// File: internal/device/device.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Kernel backend: channel to /dev/fujitsu_hwb and the hardware wait.

package device

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/momentics/hwbarrier/affinity"
	"github.com/momentics/hwbarrier/api"
	"github.com/momentics/hwbarrier/internal/hwsync"
	"golang.org/x/sys/unix"
)

// Device is the api.Backend of the fujitsu_hwb driver. The driver inspects
// the thread that issues each ioctl, so the Thread arguments of the channel
// methods are not consulted: callers must issue requests from the locked
// OS thread they pass in.
type Device struct {
	Path string
}

var _ api.Backend = (*Device)(nil)

// New returns a backend for the device node at path.
func New(path string) *Device {
	return &Device{Path: path}
}

// Open opens the device node read-only.
func (d *Device) Open() (api.Channel, error) {
	fd, err := unix.Open(d.Path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}
	return &channel{fd: fd}, nil
}

// Sync polls the window register of the calling PE.
func (d *Device) Sync(_ api.Thread, window int) {
	hwsync.Sync(window)
}

// NumCPUs returns the configured CPU count of the node.
func (d *Device) NumCPUs() int {
	return affinity.ConfiguredCPUs()
}

type channel struct {
	fd int
}

func (c *channel) AllocBlade(mask *unix.CPUSet) (uint8, uint8, error) {
	ctl := bbCtl{Size: uint32(unsafe.Sizeof(*mask)), Pemask: mask}
	err := ioctl(c.fd, IocBBAlloc, unsafe.Pointer(&ctl))
	runtime.KeepAlive(mask)
	if err != nil {
		return 0, 0, err
	}
	return ctl.CMG, ctl.BB, nil
}

func (c *channel) FreeBlade(cmg, bb uint8) error {
	ctl := bbCtl{CMG: cmg, BB: bb}
	return ioctl(c.fd, IocBBFree, unsafe.Pointer(&ctl))
}

// sameCMG checks that the calling PE lives in cmg. The driver resolves bb
// within the caller's own CMG, so a descriptor of another CMG would
// silently name a different blade.
func (c *channel) sameCMG(th api.Thread, cmg uint8) error {
	info, err := c.PEInfo(th)
	if err != nil {
		return err
	}
	if info.CMG != cmg {
		return api.NewError("", api.ErrCodeNotAMember, unix.EINVAL).
			WithContext("pe_cmg", info.CMG).WithContext("cmg", cmg)
	}
	return nil
}

func (c *channel) AssignWindow(th api.Thread, cmg, bb uint8, window int8) (int8, error) {
	if err := c.sameCMG(th, cmg); err != nil {
		return 0, err
	}
	ctl := bwCtl{BB: bb, Window: window}
	if err := ioctl(c.fd, IocBWAssign, unsafe.Pointer(&ctl)); err != nil {
		return 0, err
	}
	return ctl.Window, nil
}

func (c *channel) UnassignWindow(th api.Thread, cmg, bb uint8) error {
	if err := c.sameCMG(th, cmg); err != nil {
		return err
	}
	ctl := bwCtl{BB: bb}
	return ioctl(c.fd, IocBWUnassign, unsafe.Pointer(&ctl))
}

func (c *channel) PEInfo(_ api.Thread) (api.PEInfo, error) {
	var info peInfo
	if err := ioctl(c.fd, IocGetPEInfo, unsafe.Pointer(&info)); err != nil {
		return api.InvalidPE, err
	}
	return api.PEInfo{CMG: info.CMG, PhysicalPE: info.PPE}, nil
}

func (c *channel) Close() error {
	return unix.Close(c.fd)
}
