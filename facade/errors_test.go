package facade_test

import (
	"errors"
	"io"
	"testing"

	"github.com/momentics/hwbarrier/affinity"
	"github.com/momentics/hwbarrier/api"
	"github.com/momentics/hwbarrier/facade"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// errnoChannel answers every request with a fixed errno, the way the kernel does.
type errnoChannel struct {
	alloc, free, assign, unassign, peinfo error
}

func (c *errnoChannel) AllocBlade(*unix.CPUSet) (uint8, uint8, error) { return 0, 1, c.alloc }
func (c *errnoChannel) FreeBlade(uint8, uint8) error                  { return c.free }
func (c *errnoChannel) AssignWindow(api.Thread, uint8, uint8, int8) (int8, error) {
	return 0, c.assign
}
func (c *errnoChannel) UnassignWindow(api.Thread, uint8, uint8) error { return c.unassign }
func (c *errnoChannel) PEInfo(api.Thread) (api.PEInfo, error)         { return api.InvalidPE, c.peinfo }
func (c *errnoChannel) Close() error                                  { return nil }

type errnoBackend struct{ ch *errnoChannel }

func (b errnoBackend) Open() (api.Channel, error) { return b.ch, nil }
func (b errnoBackend) Sync(api.Thread, int)       {}
func (b errnoBackend) NumCPUs() int               { return 1 }

type pinnedThread struct{}

func (pinnedThread) Affinity() (unix.CPUSet, error) { return affinity.Single(0), nil }
func (pinnedThread) SetAffinity(*unix.CPUSet) error { return nil }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestKernelErrnoClassification(t *testing.T) {
	cases := []struct {
		name string
		ch   errnoChannel
		run  func(c *facade.Client, bd api.Descriptor) error
		want error
	}{
		{"alloc EINVAL", errnoChannel{alloc: unix.EINVAL}, nil, api.ErrInvalidMask},
		{"alloc EBUSY", errnoChannel{alloc: unix.EBUSY}, nil, api.ErrResourceExhausted},
		{"alloc ENOMEM", errnoChannel{alloc: unix.ENOMEM}, nil, api.ErrResourceExhausted},
		{"alloc EFAULT", errnoChannel{alloc: unix.EFAULT}, nil, api.ErrTransport},
		{"free EINVAL", errnoChannel{free: unix.EINVAL}, fini, api.ErrNotAllocated},
		{"free EPERM", errnoChannel{free: unix.EPERM}, fini, api.ErrInUse},
		{"assign EPERM", errnoChannel{assign: unix.EPERM}, assign, api.ErrTornDown},
		{"assign EBUSY", errnoChannel{assign: unix.EBUSY}, assign, api.ErrWindowBusy},
		{"assign EINVAL", errnoChannel{assign: unix.EINVAL}, assign, api.ErrInvalidArgument},
		{"unassign EPERM", errnoChannel{unassign: unix.EPERM}, unassign, api.ErrTornDown},
		{"unassign EINVAL", errnoChannel{unassign: unix.EINVAL}, unassign, api.ErrNotAssigned},
		{"peinfo ENOTTY", errnoChannel{peinfo: unix.ENOTTY}, peinfo, api.ErrQueryFailed},
		{"unassign EIO", errnoChannel{unassign: unix.EIO}, unassign, api.ErrTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := tc.ch
			c := facade.New(facade.DefaultConfig(),
				facade.WithBackend(errnoBackend{&ch}),
				facade.WithLogger(quietLogger()),
			)
			bd, err := c.Init(affinity.Of(0, 1))
			if tc.run != nil {
				if err != nil {
					t.Fatal(err)
				}
				err = tc.run(c, bd)
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			var errno unix.Errno
			if !errors.As(err, &errno) {
				t.Errorf("errno lost in %v", err)
			}
		})
	}
}

func fini(c *facade.Client, bd api.Descriptor) error { return c.Fini(bd) }
func assign(c *facade.Client, bd api.Descriptor) error {
	_, err := c.Assign(pinnedThread{}, bd, api.WindowAuto)
	return err
}
func unassign(c *facade.Client, bd api.Descriptor) error { return c.Unassign(pinnedThread{}, bd) }
func peinfo(c *facade.Client, _ api.Descriptor) error {
	_, err := c.PEInfo(pinnedThread{})
	return err
}
