// File: facade/client.go
// Unified facade of the hardware barrier library.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The Client aggregates the device session, the blade allocator, the window
// manager, the PE locator and the sync entry point behind one value, next to
// the config, metrics and debug probes of adapters.ControlAdapter. One Client
// per process is the normal case; Default returns it.

package facade

import (
	"os"
	"sync"

	"github.com/momentics/hwbarrier/adapters"
	"github.com/momentics/hwbarrier/affinity"
	"github.com/momentics/hwbarrier/api"
	"github.com/momentics/hwbarrier/control"
	"github.com/momentics/hwbarrier/internal/device"
	"github.com/momentics/hwbarrier/internal/hwsync"
	"github.com/momentics/hwbarrier/internal/session"
	"github.com/momentics/hwbarrier/topology"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Config holds the settings a client starts with. Later changes go through
// SetConfig; only the debug toggle takes effect on a running client.
type Config struct {
	DevicePath string // barrier device node
	SysfsRoot  string // sysfs directory of the driver
	Debug      bool   // emit debug traces
}

// DefaultConfig returns the driver's default locations with debug off.
func DefaultConfig() *Config {
	return &Config{
		DevicePath: control.DefaultDevicePath,
		SysfsRoot:  control.DefaultSysfsRoot,
		Debug:      false,
	}
}

// Client is the entry point of the library. All methods are safe for
// concurrent use by threads of the same process.
type Client struct {
	*adapters.ControlAdapter

	store   *control.ConfigStore
	backend api.Backend
	diag    api.Diagnostics
	sess    *session.Session
	logger  *logrus.Logger
	log     *logrus.Entry
}

var _ api.Control = (*Client)(nil)

// New builds a client. A nil cfg keeps whatever the config store holds.
func New(cfg *Config, opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = control.NewConfigStore()
	}
	if cfg != nil {
		c.store.SetConfig(map[string]any{
			control.KeyDevicePath: cfg.DevicePath,
			control.KeySysfsRoot:  cfg.SysfsRoot,
			control.KeyDebug:      cfg.Debug,
		})
	}
	if c.logger == nil {
		c.logger = control.NewLogger(c.store.Bool(control.KeyDebug))
	} else {
		control.SetDebug(c.logger, c.store.Bool(control.KeyDebug))
	}
	c.log = control.Component(c.logger, "hwb")
	if c.backend == nil {
		c.backend = device.New(c.store.String(control.KeyDevicePath))
	}
	if c.diag == nil {
		c.diag = topology.Sysfs{Root: c.store.String(control.KeySysfsRoot)}
	}
	c.sess = session.New(c.backend, c.log.WithField("component", "hwb.session"))

	c.ControlAdapter = adapters.NewControlAdapter(c.store)
	c.RegisterDebugProbe("session.holders", func() any { return c.sess.Holders() })
	c.RegisterDebugProbe("platform.hwsync", func() any { return hwsync.Available })
	c.OnReload(func() {
		control.SetDebug(c.logger, c.store.Bool(control.KeyDebug))
	})
	return c
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns the process-wide client on the kernel device, configured
// from the FUJITSU_HWBLIB_* environment variables on first use.
func Default() *Client {
	defaultOnce.Do(func() {
		cs := control.NewConfigStore()
		control.LoadEnv(cs, os.LookupEnv)
		defaultClient = New(nil, WithConfigStore(cs))
	})
	return defaultClient
}

// Logger returns the logger the client writes to.
func (c *Client) Logger() *logrus.Logger { return c.logger }

// fail logs a failed request and counts it.
func (c *Client) fail(err error, fields logrus.Fields) error {
	c.Metrics().Add(control.MetricErrors, 1)
	c.log.WithFields(fields).WithError(err).Error("request failed")
	return err
}

func bound(th api.Thread) bool {
	set, err := th.Affinity()
	return err == nil && set.Count() == 1
}

// Init allocates a barrier blade for the PEs in mask, which must hold at
// least two CPUs of one CMG. The arbiter picks the blade; the returned
// descriptor names it. A successful Init holds a session reference until
// the matching Fini.
func (c *Client) Init(mask unix.CPUSet) (api.Descriptor, error) {
	const op = "init"
	fields := logrus.Fields{"op": op, "mask": affinity.Format(&mask)}
	if mask.Count() < 2 {
		return api.Descriptor{}, c.fail(api.NewError(op, api.ErrCodeInvalidMask, nil).
			WithContext("members", mask.Count()), fields)
	}
	ch, err := c.sess.Acquire()
	if err != nil {
		return api.Descriptor{}, c.fail(err, fields)
	}
	cmg, bb, err := ch.AllocBlade(&mask)
	if err != nil {
		c.sess.Release()
		return api.Descriptor{}, c.fail(classify(op, reqAlloc, err), fields)
	}
	bd := api.NewDescriptor(cmg, bb)
	c.Metrics().Add(control.MetricBladeAlloc, 1)
	c.log.WithFields(fields).WithFields(logrus.Fields{"cmg": cmg, "bb": bb, "bd": bd.Raw()}).Debug("blade allocated")
	return bd, nil
}

// Fini frees the blade named by bd and drops the session reference taken by
// Init. On failure the reference is kept.
func (c *Client) Fini(bd api.Descriptor) error {
	const op = "fini"
	fields := logrus.Fields{"op": op, "bd": bd.Raw(), "cmg": bd.CMG(), "bb": bd.Blade()}
	ch, err := c.sess.Current()
	if err != nil {
		return c.fail(err, fields)
	}
	if !bd.Valid() {
		return c.fail(api.NewError(op, api.ErrCodeNotAllocated, nil), fields)
	}
	if err := ch.FreeBlade(uint8(bd.CMG()), uint8(bd.Blade())); err != nil {
		return c.fail(classify(op, reqFree, err), fields)
	}
	c.sess.Release()
	c.Metrics().Add(control.MetricBladeFree, 1)
	c.log.WithFields(fields).Debug("blade freed")
	return nil
}

// Assign gives the PE th is bound to a window on blade bd. Pass
// api.WindowAuto to let the arbiter choose. th must be pinned to exactly
// one CPU and must be the thread the request is issued from.
func (c *Client) Assign(th api.Thread, bd api.Descriptor, window int) (Window, error) {
	const op = "assign"
	fields := logrus.Fields{"op": op, "bd": bd.Raw(), "cmg": bd.CMG(), "bb": bd.Blade(), "window": window}
	ch, err := c.sess.Current()
	if err != nil {
		return Window{}, c.fail(err, fields)
	}
	if !bound(th) {
		return Window{}, c.fail(api.NewError(op, api.ErrCodeNotBound, nil), fields)
	}
	if window < api.WindowAuto || window > api.MaxWindowIndex {
		return Window{}, c.fail(api.NewError(op, api.ErrCodeInvalidWindow, nil), fields)
	}
	if !bd.Valid() {
		return Window{}, c.fail(api.NewError(op, api.ErrCodeNotAllocated, nil), fields)
	}
	got, err := ch.AssignWindow(th, uint8(bd.CMG()), uint8(bd.Blade()), int8(window))
	if err != nil {
		return Window{}, c.fail(classify(op, reqAssign, err), fields)
	}
	c.Metrics().Add(control.MetricWindowAssign, 1)
	c.log.WithFields(fields).WithField("assigned", got).Debug("window assigned")
	return newWindow(bd, got), nil
}

// Unassign releases the window the PE th is bound to holds on blade bd.
func (c *Client) Unassign(th api.Thread, bd api.Descriptor) error {
	const op = "unassign"
	fields := logrus.Fields{"op": op, "bd": bd.Raw(), "cmg": bd.CMG(), "bb": bd.Blade()}
	ch, err := c.sess.Current()
	if err != nil {
		return c.fail(err, fields)
	}
	if !bound(th) {
		return c.fail(api.NewError(op, api.ErrCodeNotBound, nil), fields)
	}
	if !bd.Valid() {
		return c.fail(api.NewError(op, api.ErrCodeNotAllocated, nil), fields)
	}
	if err := ch.UnassignWindow(th, uint8(bd.CMG()), uint8(bd.Blade())); err != nil {
		return c.fail(classify(op, reqUnassign, err), fields)
	}
	c.Metrics().Add(control.MetricWindowRelease, 1)
	c.log.WithFields(fields).Debug("window unassigned")
	return nil
}

// Sync blocks until every PE holding a window on w's blade has called Sync.
// There is no timeout and no cancellation.
//
// FATAL: syncing a window the calling PE does not hold terminates the
// process (SIGILL on hardware). A zero Window is always fatal.
func (c *Client) Sync(th api.Thread, w Window) {
	if !w.Valid() {
		c.log.WithField("op", "sync").Fatal("sync on a window that was never assigned")
		return
	}
	c.backend.Sync(th, w.Index())
}

// PEInfo returns the CMG and physical PE number of the CPU th runs on.
func (c *Client) PEInfo(th api.Thread) (api.PEInfo, error) {
	const op = "peinfo"
	fields := logrus.Fields{"op": op}
	ch, err := c.sess.Acquire()
	if err != nil {
		return api.InvalidPE, c.fail(err, fields)
	}
	defer c.sess.Release()
	info, err := ch.PEInfo(th)
	if err != nil {
		return api.InvalidPE, c.fail(classify(op, reqPEInfo, err), fields)
	}
	return info, nil
}

// AllPEInfo returns the PE of every configured CPU, indexed by CPU number.
// It moves th onto each CPU in turn; CPUs th cannot run on, or whose query
// fails, read as api.InvalidPE. The affinity of th is restored before
// returning.
func (c *Client) AllPEInfo(th api.Thread) ([]api.PEInfo, error) {
	const op = "all_peinfo"
	fields := logrus.Fields{"op": op}
	ch, err := c.sess.Acquire()
	if err != nil {
		return nil, c.fail(err, fields)
	}
	defer c.sess.Release()

	saved, err := th.Affinity()
	if err != nil {
		return nil, c.fail(api.NewError(op, api.ErrCodeQueryFailed, err), fields)
	}
	out := make([]api.PEInfo, c.backend.NumCPUs())
	for cpu := range out {
		out[cpu] = api.InvalidPE
		set := affinity.Single(cpu)
		if err := th.SetAffinity(&set); err != nil {
			c.log.WithFields(fields).WithField("cpu", cpu).WithError(err).Debug("cpu not usable")
			continue
		}
		info, err := ch.PEInfo(th)
		if err != nil {
			c.log.WithFields(fields).WithField("cpu", cpu).WithError(err).Debug("pe query failed")
			continue
		}
		out[cpu] = info
	}
	if err := th.SetAffinity(&saved); err != nil {
		return out, c.fail(api.NewError(op, api.ErrCodeQueryFailed, err).
			WithContext("restore", affinity.Format(&saved)), fields)
	}
	return out, nil
}

// MaskForCMG collects the CPUs of list that belong to cmg.
func MaskForCMG(list []api.PEInfo, cmg int) unix.CPUSet {
	var set unix.CPUSet
	for cpu, info := range list {
		if info.Valid() && int(info.CMG) == cmg {
			set.Set(cpu)
		}
	}
	return set
}

// Topology reads the arbiter's fact sheet.
func (c *Client) Topology() (api.TopologyInfo, error) {
	return c.diag.HWInfo()
}

// CheckClean verifies that no blade, window or sync state is in use.
func (c *Client) CheckClean(skipInitSync bool) error {
	return topology.CheckClean(c.diag, skipInitSync)
}

// Diagnostics returns the arbiter state view the client was built with.
func (c *Client) Diagnostics() api.Diagnostics { return c.diag }
